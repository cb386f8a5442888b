package services

import (
	"crypto/subtle"

	"github.com/samber/lo"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
)

// AccessRestrictionChecker avalia as políticas de restrição de um formulário.
//
// Check has no side effects: a passing ticket is only reported, never
// consumed, so previews can call it freely. The submission path must consume
// the ticket exactly once through a ports.TicketConsumer after saving.
type AccessRestrictionChecker struct{}

// Check avalia password, denylist, allowlist e ticket, parando na primeira falha.
func (AccessRestrictionChecker) Check(cfg domain.FormConfig, attempt domain.RestrictionAttempt) domain.RestrictionResult {
	p := cfg.Policies

	if p.Password != nil {
		if attempt.Password == "" {
			return deny(domain.RestrictionPasswordMissing)
		}
		if subtle.ConstantTimeCompare([]byte(attempt.Password), []byte(p.Password.ValidationCode)) != 1 {
			return deny(domain.RestrictionPasswordInvalid)
		}
	}

	id := domain.NormalizeIdentifier(attempt.Identifier)

	if p.Denylist != nil && id != "" && containsIdentifier(p.Denylist.Entries, id) {
		return deny(domain.RestrictionDenied)
	}

	if p.Allowlist != nil && (id == "" || !containsIdentifier(p.Allowlist.Entries, id)) {
		return deny(domain.RestrictionNotAllowed)
	}

	if p.Ticket != nil {
		code := domain.NormalizeTicket(attempt.TicketCode, p.Ticket.IgnoreDashes)
		if code == "" {
			return deny(domain.RestrictionTicketMissing)
		}
		entry, found := lo.Find(p.Ticket.Codes, func(stored string) bool {
			return domain.NormalizeTicket(stored, p.Ticket.IgnoreDashes) == code
		})
		if !found {
			return deny(domain.RestrictionTicketInvalid)
		}
		return domain.RestrictionResult{Allowed: true, IsTicket: true, Ticket: entry}
	}

	return domain.RestrictionResult{Allowed: true}
}

func containsIdentifier(entries []string, normalized string) bool {
	return lo.ContainsBy(entries, func(entry string) bool {
		return domain.NormalizeIdentifier(entry) == normalized
	})
}

func deny(reason domain.RestrictionReason) domain.RestrictionResult {
	return domain.RestrictionResult{Allowed: false, Reason: reason, Message: domain.RestrictionMessages[reason]}
}
