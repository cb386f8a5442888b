package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// Gatekeeper encadeia desafio, rate limit e restrições de formulário.
type Gatekeeper struct {
	challenge    *ChallengeService
	limiter      ports.RateLimiter
	forms        ports.FormConfigProvider
	restrictions AccessRestrictionChecker
}

// NewGatekeeper valida e monta o gatekeeper.
func NewGatekeeper(challenge *ChallengeService, limiter ports.RateLimiter, forms ports.FormConfigProvider) (*Gatekeeper, error) {
	if challenge == nil {
		return nil, fmt.Errorf("challenge service is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if forms == nil {
		return nil, fmt.Errorf("form config provider is required")
	}
	return &Gatekeeper{challenge: challenge, limiter: limiter, forms: forms}, nil
}

// Admit avalia uma submissão: desafio, depois CheckAll, depois as restrições do formulário.
// The first failing stage decides. Admit never returns an error for a denial;
// the error is reserved for an unknown form or a failing form provider.
func (g *Gatekeeper) Admit(ctx context.Context, sub domain.Submission) (domain.GateDecision, error) {
	decisionID := uuid.NewString()

	if err := g.challenge.ValidateSecurityFields(sub.Security); err != nil {
		var secErr *domain.SecurityError
		reason := "challenge"
		if errors.As(err, &secErr) {
			reason = secErr.Code
		}
		return domain.GateDecision{
			DecisionID: decisionID,
			Stage:      domain.StageChallenge,
			Reason:     reason,
			Message:    err.Error(),
		}, nil
	}

	rl := g.limiter.CheckAll(ctx, sub.IP, sub.Email, sub.Identifier, sub.UserID)
	if !rl.Allowed {
		return domain.GateDecision{
			DecisionID:  decisionID,
			Stage:       domain.StageRateLimit,
			Reason:      string(rl.Reason),
			Message:     rl.Message,
			WaitSeconds: rl.WaitSeconds,
			Scope:       rl.Scope,
			Subject:     rl.Subject,
		}, nil
	}

	cfg, err := g.forms.FormConfig(ctx, sub.FormID)
	if err != nil {
		return domain.GateDecision{DecisionID: decisionID}, fmt.Errorf("load form %d: %w", sub.FormID, err)
	}

	res := g.restrictions.Check(cfg, domain.RestrictionAttempt{
		FormID:     sub.FormID,
		Identifier: sub.Identifier,
		Password:   sub.Password,
		TicketCode: sub.TicketCode,
	})
	if !res.Allowed {
		return domain.GateDecision{
			DecisionID: decisionID,
			Stage:      domain.StageRestriction,
			Reason:     string(res.Reason),
			Message:    res.Message,
		}, nil
	}

	return domain.GateDecision{
		DecisionID: decisionID,
		Allowed:    true,
		Stage:      domain.StageAdmitted,
		Scope:      rl.Scope,
		Subject:    rl.Subject,
		IsTicket:   res.IsTicket,
		Ticket:     res.Ticket,
	}, nil
}

// Challenge expõe o gerador de desafios para os handlers.
func (g *Gatekeeper) Challenge() domain.Challenge {
	return g.challenge.Generate()
}
