package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// SettingsStore é o SettingsProvider do processo: um snapshot trocável atomicamente.
type SettingsStore struct {
	current atomic.Pointer[domain.RateLimitSettings]
}

var _ ports.SettingsProvider = (*SettingsStore)(nil)

func NewSettingsStore(settings domain.RateLimitSettings) (*SettingsStore, error) {
	s := &SettingsStore{}
	if err := s.Replace(settings); err != nil {
		return nil, err
	}
	return s, nil
}

// RateLimitSettings devolve o snapshot atual.
func (s *SettingsStore) RateLimitSettings(context.Context) domain.RateLimitSettings {
	if cur := s.current.Load(); cur != nil {
		return *cur
	}
	return domain.RateLimitSettings{}
}

// Replace valida e publica um novo snapshot.
func (s *SettingsStore) Replace(settings domain.RateLimitSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.current.Store(&settings)
	return nil
}

// LoadRateLimitSettings relê apenas as variáveis de rate limit, para recarga em runtime.
func LoadRateLimitSettings() (domain.RateLimitSettings, error) {
	settings, err := buildRateLimitSettings()
	if err != nil {
		return domain.RateLimitSettings{}, err
	}
	return settings, settings.Validate()
}

type envReader struct {
	err error
}

func (r *envReader) int(key string, fallback int) int {
	v, err := intEnv(key, fallback)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func (r *envReader) bool(key string, fallback bool) bool {
	v, err := boolEnv(key, fallback)
	if err != nil && r.err == nil {
		r.err = err
	}
	return v
}

func buildRateLimitSettings() (domain.RateLimitSettings, error) {
	d := domain.DefaultRateLimitSettings()
	r := &envReader{}
	var s domain.RateLimitSettings

	if r.bool("IP_LIMIT_ENABLED", true) {
		s.IP = &domain.IPLimits{
			MaxPerHour:      r.int("IP_MAX_PER_HOUR", d.IP.MaxPerHour),
			MaxPerDay:       r.int("IP_MAX_PER_DAY", d.IP.MaxPerDay),
			CooldownSeconds: r.int("IP_COOLDOWN_SECONDS", d.IP.CooldownSeconds),
		}
	}

	if r.bool("EMAIL_LIMIT_ENABLED", true) {
		s.Email = &domain.EmailLimits{
			MaxPerDay:     r.int("EMAIL_MAX_PER_DAY", d.Email.MaxPerDay),
			MaxPerWeek:    r.int("EMAIL_MAX_PER_WEEK", d.Email.MaxPerWeek),
			MaxPerMonth:   r.int("EMAIL_MAX_PER_MONTH", d.Email.MaxPerMonth),
			WaitHours:     r.int("EMAIL_WAIT_HOURS", d.Email.WaitHours),
			CheckDatabase: r.bool("EMAIL_CHECK_DATABASE", false),
		}
	}

	if r.bool("IDENTIFIER_LIMIT_ENABLED", true) {
		s.Identifier = &domain.IdentifierLimits{
			MaxPerDay:      r.int("IDENTIFIER_MAX_PER_DAY", d.Identifier.MaxPerDay),
			MaxPerWeek:     r.int("IDENTIFIER_MAX_PER_WEEK", d.Identifier.MaxPerWeek),
			MaxPerMonth:    r.int("IDENTIFIER_MAX_PER_MONTH", d.Identifier.MaxPerMonth),
			WaitHours:      r.int("IDENTIFIER_WAIT_HOURS", d.Identifier.WaitHours),
			CheckDatabase:  r.bool("IDENTIFIER_CHECK_DATABASE", false),
			BlockThreshold: r.int("IDENTIFIER_BLOCK_THRESHOLD", d.Identifier.BlockThreshold),
			BlockHours:     r.int("IDENTIFIER_BLOCK_HOURS", d.Identifier.BlockHours),
			BlockDuration:  r.int("IDENTIFIER_BLOCK_DURATION", d.Identifier.BlockDuration),
		}
	}

	if r.bool("GLOBAL_LIMIT_ENABLED", false) {
		s.Global = &domain.GlobalLimits{
			MaxPerMinute: r.int("GLOBAL_MAX_PER_MINUTE", d.Global.MaxPerMinute),
			MaxPerHour:   r.int("GLOBAL_MAX_PER_HOUR", d.Global.MaxPerHour),
		}
	}

	if r.bool("VERIFICATION_LIMIT_ENABLED", true) {
		s.Verification = &domain.VerificationLimits{
			MaxPerHour: r.int("VERIFICATION_MAX_PER_HOUR", d.Verification.MaxPerHour),
			MaxPerDay:  r.int("VERIFICATION_MAX_PER_DAY", d.Verification.MaxPerDay),
		}
	}

	if r.bool("WHITELIST_ENABLED", false) {
		s.Whitelist = listSetEnv("WHITELIST")
	}
	if r.bool("BLACKLIST_ENABLED", false) {
		s.Blacklist = listSetEnv("BLACKLIST")
	}

	if r.bool("LOGGING_ENABLED", false) {
		s.Logging = &domain.LoggingSettings{
			LogAllowed:    r.bool("LOG_ALLOWED", false),
			LogBlocked:    r.bool("LOG_BLOCKED", true),
			RetentionDays: r.int("LOG_RETENTION_DAYS", 30),
		}
	}

	s.UI = domain.UISettings{
		ShowWaitTime: r.bool("UI_SHOW_WAIT_TIME", true),
		Messages:     messagesEnv(),
	}

	if r.err != nil {
		return domain.RateLimitSettings{}, r.err
	}

	actions, err := buildUserActionLimits()
	if err != nil {
		return domain.RateLimitSettings{}, err
	}
	s.UserActions = actions
	return s, nil
}

func listSetEnv(prefix string) *domain.ListSet {
	return &domain.ListSet{
		IPs:          listEnv(prefix + "_IPS"),
		Emails:       listEnv(prefix + "_EMAILS"),
		EmailDomains: listEnv(prefix + "_EMAIL_DOMAINS"),
		Identifiers:  listEnv(prefix + "_IDENTIFIERS"),
	}
}

// messagesEnv lê MESSAGE_<REASON>, por exemplo MESSAGE_IP_COOLDOWN.
func messagesEnv() map[domain.Reason]string {
	messages := make(map[domain.Reason]string)
	for reason := range domain.DefaultMessages {
		if v := strings.TrimSpace(os.Getenv("MESSAGE_" + strings.ToUpper(string(reason)))); v != "" {
			messages[reason] = v
		}
	}
	return messages
}

// buildUserActionLimits lê USER_ACTION_LIMITS no formato ACTION:PER_HOUR:PER_DAY separados por vírgula.
func buildUserActionLimits() (map[string]domain.UserActionLimits, error) {
	raw := strings.TrimSpace(os.Getenv("USER_ACTION_LIMITS"))
	if raw == "" {
		return map[string]domain.UserActionLimits{}, nil
	}

	limits := make(map[string]domain.UserActionLimits)
	for _, item := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("user action limit must follow ACTION:PER_HOUR:PER_DAY: %s", item)
		}

		action := strings.ToLower(strings.TrimSpace(parts[0]))
		perHour, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid per-hour limit for action %s: %w", action, err)
		}
		perDay, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid per-day limit for action %s: %w", action, err)
		}

		limits[action] = domain.UserActionLimits{MaxPerHour: perHour, MaxPerDay: perDay}
	}

	return limits, nil
}
