package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// SubmissionAction é a ação de usuário avaliada por CheckAll quando há userID.
const SubmissionAction = "submission"

const defaultStoreTimeout = 250 * time.Millisecond

// Config agrega os colaboradores opcionais do serviço de rate limiting.
type Config struct {
	Settings ports.SettingsProvider
	// History is consulted only when a scope has CheckDatabase enabled.
	History ports.HistoricalCounter
	// Audit receives degraded-mode events when the counter store fails. Each
	// Record call is bounded by StoreTimeout.
	Audit ports.AuditSink
	// HashSalt salts the subject digest exposed when raw subjects must not be logged.
	HashSalt     []byte
	StoreTimeout time.Duration
	Now          func() time.Time
}

// RateLimiterService implementa os limites por IP, email, identificador, usuário e global.
//
// Every Check* call counts as an attempt: counters are incremented whether the
// call was allowed or denied, because the limit targets request volume.
type RateLimiterService struct {
	storage ports.CounterStore
	config  Config
	matcher ListMatcher
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(storage ports.CounterStore, cfg Config) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings provider is required")
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &RateLimiterService{storage: storage, config: cfg}, nil
}

type windowRule struct {
	window domain.Window
	max    int
	reason domain.Reason
}

// CheckIPLimit avalia cooldown, limite por hora e por dia, nessa ordem.
func (s *RateLimiterService) CheckIPLimit(ctx context.Context, ip string) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	return s.finish(st, s.checkIP(ctx, st, ip), strings.TrimSpace(ip))
}

func (s *RateLimiterService) checkIP(ctx context.Context, st domain.RateLimitSettings, ip string) domain.Decision {
	ip = strings.TrimSpace(ip)
	limits := st.IP
	if limits == nil || ip == "" {
		return domain.Allow(domain.ScopeIP)
	}

	now := s.config.Now()
	rules := []windowRule{
		{domain.WindowHour, limits.MaxPerHour, domain.ReasonIPHourLimit},
		{domain.WindowDay, limits.MaxPerDay, domain.ReasonIPDayLimit},
	}

	decision, cooling := s.checkCooldown(ctx, ip, limits.CooldownSeconds, now)
	if !cooling {
		decision = s.evaluateWindows(ctx, domain.ScopeIP, ip, rules)
	}
	s.countWindows(ctx, domain.ScopeIP, ip, rules)

	// The marker is not refreshed while the visitor is still cooling down, so
	// the countdown shown to them stays truthful.
	if limits.CooldownSeconds > 0 && !cooling {
		ttl := time.Duration(limits.CooldownSeconds) * time.Second
		s.set(ctx, domain.ScopeIP, domain.CooldownKey(ip), now.Unix(), ttl)
	}
	return decision
}

func (s *RateLimiterService) checkCooldown(ctx context.Context, ip string, cooldownSeconds int, now time.Time) (domain.Decision, bool) {
	if cooldownSeconds <= 0 {
		return domain.Allow(domain.ScopeIP), false
	}
	marker, found := s.get(ctx, domain.ScopeIP, domain.CooldownKey(ip))
	if !found {
		return domain.Allow(domain.ScopeIP), false
	}
	elapsed := max(now.Unix()-marker, 0)
	if elapsed >= int64(cooldownSeconds) {
		return domain.Allow(domain.ScopeIP), false
	}
	return domain.Deny(domain.ScopeIP, domain.ReasonIPCooldown, cooldownSeconds-int(elapsed)), true
}

// CheckVerificationLimit protege o endpoint público de verificação com contadores próprios.
func (s *RateLimiterService) CheckVerificationLimit(ctx context.Context, ip string) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	ip = strings.TrimSpace(ip)
	limits := st.Verification
	if limits == nil || ip == "" {
		return domain.Allow(domain.ScopeVerification)
	}

	rules := []windowRule{
		{domain.WindowHour, limits.MaxPerHour, domain.ReasonVerificationHour},
		{domain.WindowDay, limits.MaxPerDay, domain.ReasonVerificationDay},
	}
	decision := s.evaluateWindows(ctx, domain.ScopeVerification, ip, rules)
	s.countWindows(ctx, domain.ScopeVerification, ip, rules)
	return s.finish(st, decision, ip)
}

// CheckEmailLimit compara o histórico persistido do email com os limites de dia, semana e mês.
func (s *RateLimiterService) CheckEmailLimit(ctx context.Context, email string) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	email = domain.NormalizeEmail(email)
	return s.finish(st, s.checkEmail(ctx, st, email), email)
}

func (s *RateLimiterService) checkEmail(ctx context.Context, st domain.RateLimitSettings, email string) domain.Decision {
	limits := st.Email
	if limits == nil || !limits.CheckDatabase || email == "" || s.config.History == nil {
		return domain.Allow(domain.ScopeEmail)
	}

	rules := []windowRule{
		{domain.WindowDay, limits.MaxPerDay, domain.ReasonEmailDayLimit},
		{domain.WindowWeek, limits.MaxPerWeek, domain.ReasonEmailWeekLimit},
		{domain.WindowMonth, limits.MaxPerMonth, domain.ReasonEmailMonthLimit},
	}
	return s.evaluateHistory(ctx, domain.ScopeEmail, rules, limits.WaitHours, func(since time.Time) (int, error) {
		return s.config.History.CountByEmailSince(ctx, email, since)
	})
}

// CheckIdentifierLimit funciona como CheckEmailLimit e adiciona o bloqueio estendido:
// after BlockThreshold denials within BlockHours the identifier is blocked for
// BlockDuration hours regardless of later counts.
func (s *RateLimiterService) CheckIdentifierLimit(ctx context.Context, identifier string) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	id := domain.NormalizeIdentifier(identifier)
	return s.finish(st, s.checkIdentifier(ctx, st, id), id)
}

func (s *RateLimiterService) checkIdentifier(ctx context.Context, st domain.RateLimitSettings, id string) domain.Decision {
	limits := st.Identifier
	if limits == nil || !limits.CheckDatabase || id == "" {
		return domain.Allow(domain.ScopeIdentifier)
	}

	now := s.config.Now()
	blockKey := identifierBlockKey(id)
	if until, found := s.get(ctx, domain.ScopeIdentifier, blockKey); found && until > now.Unix() {
		return domain.Deny(domain.ScopeIdentifier, domain.ReasonIdentifierBlocked, int(until-now.Unix()))
	}

	if s.config.History == nil {
		return domain.Allow(domain.ScopeIdentifier)
	}

	rules := []windowRule{
		{domain.WindowDay, limits.MaxPerDay, domain.ReasonIdentifierDayLimit},
		{domain.WindowWeek, limits.MaxPerWeek, domain.ReasonIdentifierWeekLimit},
		{domain.WindowMonth, limits.MaxPerMonth, domain.ReasonIdentifierMonthLimit},
	}
	decision := s.evaluateHistory(ctx, domain.ScopeIdentifier, rules, limits.WaitHours, func(since time.Time) (int, error) {
		return s.config.History.CountByIdentifierSince(ctx, id, since)
	})
	if decision.Allowed || limits.BlockThreshold <= 0 {
		return decision
	}

	denials := s.incr(ctx, domain.ScopeIdentifier, identifierDenialKey(id), time.Duration(limits.BlockHours)*time.Hour)
	if denials < int64(limits.BlockThreshold) {
		return decision
	}
	blockFor := time.Duration(limits.BlockDuration) * time.Hour
	s.set(ctx, domain.ScopeIdentifier, blockKey, now.Add(blockFor).Unix(), blockFor)
	return domain.Deny(domain.ScopeIdentifier, domain.ReasonIdentifierBlocked, int(blockFor/time.Second))
}

// CheckUserLimit limita ações sensíveis por usuário autenticado. userID <= 0 sempre passa.
func (s *RateLimiterService) CheckUserLimit(ctx context.Context, userID int64, action string, maxPerHour, maxPerDay int) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	subject := userSubject(userID, action)
	return s.finish(st, s.checkUser(ctx, userID, action, maxPerHour, maxPerDay), subject)
}

func (s *RateLimiterService) checkUser(ctx context.Context, userID int64, action string, maxPerHour, maxPerDay int) domain.Decision {
	if userID <= 0 {
		return domain.Allow(domain.ScopeUserAction)
	}
	subject := userSubject(userID, action)
	rules := []windowRule{
		{domain.WindowHour, maxPerHour, domain.ReasonUserHourLimit},
		{domain.WindowDay, maxPerDay, domain.ReasonUserDayLimit},
	}
	decision := s.evaluateWindows(ctx, domain.ScopeUserAction, subject, rules)
	s.countWindows(ctx, domain.ScopeUserAction, subject, rules)
	return decision
}

// CheckGlobalLimit limita o volume total de submissões do sistema.
func (s *RateLimiterService) CheckGlobalLimit(ctx context.Context) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	return s.finish(st, s.checkGlobal(ctx, st), "")
}

func (s *RateLimiterService) checkGlobal(ctx context.Context, st domain.RateLimitSettings) domain.Decision {
	limits := st.Global
	if limits == nil {
		return domain.Allow(domain.ScopeGlobal)
	}
	rules := []windowRule{
		{domain.WindowMinute, limits.MaxPerMinute, domain.ReasonGlobalMinuteLimit},
		{domain.WindowHour, limits.MaxPerHour, domain.ReasonGlobalHourLimit},
	}
	decision := s.evaluateWindows(ctx, domain.ScopeGlobal, "all", rules)
	s.countWindows(ctx, domain.ScopeGlobal, "all", rules)
	return decision
}

// CheckAll é o ponto de entrada composto.
//
// Blacklist wins over everything, whitelist bypasses every counter, then IP,
// email, identifier, global and (for authenticated users) the submission
// action limit run in that order; the first denial stops the evaluation.
func (s *RateLimiterService) CheckAll(ctx context.Context, ip, email, identifier string, userID int64) domain.Decision {
	st := s.config.Settings.RateLimitSettings(ctx)
	ip = strings.TrimSpace(ip)
	email = domain.NormalizeEmail(email)
	id := domain.NormalizeIdentifier(identifier)

	if st.Blacklist != nil && s.matcher.MatchesSet(st.Blacklist, ip, email, identifier) {
		return s.finish(st, domain.Deny(domain.ScopeBlacklist, domain.ReasonBlocked, 0), firstNonEmpty(ip, email, id))
	}
	if st.Whitelist != nil && s.matcher.MatchesSet(st.Whitelist, ip, email, identifier) {
		return s.finish(st, domain.Allow(domain.ScopeWhitelist), firstNonEmpty(ip, email, id))
	}

	if d := s.checkIP(ctx, st, ip); !d.Allowed {
		return s.finish(st, d, ip)
	}
	if d := s.checkEmail(ctx, st, email); !d.Allowed {
		return s.finish(st, d, email)
	}
	if d := s.checkIdentifier(ctx, st, id); !d.Allowed {
		return s.finish(st, d, id)
	}
	if d := s.checkGlobal(ctx, st); !d.Allowed {
		return s.finish(st, d, "")
	}
	if limits, ok := st.UserActions[SubmissionAction]; ok && userID > 0 {
		if d := s.checkUser(ctx, userID, SubmissionAction, limits.MaxPerHour, limits.MaxPerDay); !d.Allowed {
			return s.finish(st, d, userSubject(userID, SubmissionAction))
		}
	}
	return s.finish(st, domain.Allow(domain.ScopeAll), ip)
}

func (s *RateLimiterService) evaluateWindows(ctx context.Context, scope domain.Scope, subject string, rules []windowRule) domain.Decision {
	for _, r := range rules {
		if r.max <= 0 {
			continue
		}
		key := domain.CounterKey{Scope: scope, Subject: subject, Window: r.window}
		if count, _ := s.get(ctx, scope, key.String()); count >= int64(r.max) {
			return domain.Deny(scope, r.reason, r.window.Seconds())
		}
	}
	return domain.Allow(scope)
}

func (s *RateLimiterService) countWindows(ctx context.Context, scope domain.Scope, subject string, rules []windowRule) {
	for _, r := range rules {
		if r.max <= 0 {
			continue
		}
		key := domain.CounterKey{Scope: scope, Subject: subject, Window: r.window}
		s.incr(ctx, scope, key.String(), r.window.Duration())
	}
}

func (s *RateLimiterService) evaluateHistory(ctx context.Context, scope domain.Scope, rules []windowRule, waitHours int, count func(time.Time) (int, error)) domain.Decision {
	now := s.config.Now()
	for _, r := range rules {
		if r.max <= 0 {
			continue
		}
		n, err := count(now.Add(-r.window.Duration()))
		if err != nil {
			s.degraded(ctx, scope, "history", err)
			continue
		}
		if n >= r.max {
			wait := r.window.Seconds()
			if waitHours > 0 {
				wait = waitHours * 3600
			}
			return domain.Deny(scope, r.reason, wait)
		}
	}
	return domain.Allow(scope)
}

func (s *RateLimiterService) get(ctx context.Context, scope domain.Scope, key string) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	value, found, err := s.storage.Get(ctx, key)
	if err != nil {
		s.degraded(ctx, scope, "get", err)
		return 0, false
	}
	return value, found
}

func (s *RateLimiterService) incr(ctx context.Context, scope domain.Scope, key string, ttl time.Duration) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	value, err := s.storage.Increment(ctx, key, ttl)
	if err != nil {
		s.degraded(ctx, scope, "increment", err)
		return 0
	}
	return value
}

func (s *RateLimiterService) set(ctx context.Context, scope domain.Scope, key string, value int64, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()
	if err := s.storage.SetWithTTL(ctx, key, value, ttl); err != nil {
		s.degraded(ctx, scope, "set", err)
	}
}

func (s *RateLimiterService) degraded(ctx context.Context, scope domain.Scope, op string, err error) {
	if s.config.Audit == nil {
		return
	}
	// The sink gets its own deadline: the caller's may already be spent.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.StoreTimeout)
	defer cancel()
	_ = s.config.Audit.Record(ctx, domain.AuditEvent{
		ID:         uuid.NewString(),
		Kind:       domain.AuditKindDegraded,
		Allowed:    true,
		Stage:      domain.StageRateLimit,
		Scope:      scope,
		Reason:     op,
		OccurredAt: s.config.Now().UTC(),
		Detail:     fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err).Error(),
	})
}

func (s *RateLimiterService) finish(st domain.RateLimitSettings, d domain.Decision, subject string) domain.Decision {
	if !d.Allowed {
		d.Message = st.UI.Message(d.Reason, d.WaitSeconds)
	}
	if subject == "" {
		return d
	}
	if revealSubject(st.Logging, d.Allowed) {
		d.Subject = subject
	} else {
		d.Subject = RedactSubject(subject, s.config.HashSalt)
	}
	return d
}

func revealSubject(logging *domain.LoggingSettings, allowed bool) bool {
	if logging == nil {
		return false
	}
	if allowed {
		return logging.LogAllowed
	}
	return logging.LogBlocked
}

// RedactSubject devolve um prefixo do digest salgado do subject.
func RedactSubject(subject string, salt []byte) string {
	h := sha256.New()
	if len(salt) > 0 {
		_, _ = h.Write(salt)
	}
	_, _ = h.Write([]byte(subject))
	return "sha256:" + hex.EncodeToString(h.Sum(nil))[:16]
}

func identifierBlockKey(id string) string {
	return fmt.Sprintf("gatekeeper:%s:block:%s", domain.ScopeIdentifier, id)
}

func identifierDenialKey(id string) string {
	return fmt.Sprintf("gatekeeper:%s:denials:%s", domain.ScopeIdentifier, id)
}

func userSubject(userID int64, action string) string {
	return fmt.Sprintf("%d:%s", userID, strings.ToLower(strings.TrimSpace(action)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
