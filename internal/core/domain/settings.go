package domain

import (
	"fmt"
	"strings"
)

// RateLimitSettings é o snapshot de configuração consultado pelo gatekeeper.
//
// Each optional section is a pointer: nil means the scope is disabled, a
// non-nil value means it is enabled with the thresholds it carries.
type RateLimitSettings struct {
	IP           *IPLimits
	Email        *EmailLimits
	Identifier   *IdentifierLimits
	Global       *GlobalLimits
	Verification *VerificationLimits
	UserActions  map[string]UserActionLimits
	Whitelist    *ListSet
	Blacklist    *ListSet
	Logging      *LoggingSettings
	UI           UISettings
}

type IPLimits struct {
	MaxPerHour      int
	MaxPerDay       int
	CooldownSeconds int
}

type EmailLimits struct {
	MaxPerDay   int
	MaxPerWeek  int
	MaxPerMonth int
	WaitHours   int
	// CheckDatabase delegates the counts to the HistoricalCounter.
	CheckDatabase bool
}

type IdentifierLimits struct {
	MaxPerDay      int
	MaxPerWeek     int
	MaxPerMonth    int
	WaitHours      int
	CheckDatabase  bool
	BlockThreshold int
	BlockHours     int
	BlockDuration  int
}

type GlobalLimits struct {
	MaxPerMinute int
	MaxPerHour   int
}

type VerificationLimits struct {
	MaxPerHour int
	MaxPerDay  int
}

type UserActionLimits struct {
	MaxPerHour int
	MaxPerDay  int
}

// ListSet agrupa entradas de blacklist/whitelist por tipo.
type ListSet struct {
	IPs          []string
	Emails       []string
	EmailDomains []string
	Identifiers  []string
}

// Empty reports whether the set has no entries at all.
func (l *ListSet) Empty() bool {
	return l == nil || len(l.IPs)+len(l.Emails)+len(l.EmailDomains)+len(l.Identifiers) == 0
}

type LoggingSettings struct {
	LogAllowed    bool
	LogBlocked    bool
	RetentionDays int
}

// UISettings controla as mensagens exibidas ao visitante.
type UISettings struct {
	ShowWaitTime bool
	// Messages overrides DefaultMessages per reason. "{time}" is replaced by the wait time.
	Messages map[Reason]string
}

// DefaultMessages são os textos padrão por motivo de negação.
var DefaultMessages = map[Reason]string{
	ReasonBlocked:              "Your access has been blocked. Please contact the administrator.",
	ReasonIPCooldown:           "Please wait {time} before submitting again.",
	ReasonIPHourLimit:          "Hourly limit reached. Try again in {time}.",
	ReasonIPDayLimit:           "Daily limit reached. Try again in {time}.",
	ReasonVerificationHour:     "Too many verification attempts. Try again in {time}.",
	ReasonVerificationDay:      "Daily verification limit reached. Try again in {time}.",
	ReasonEmailDayLimit:        "This email has reached the daily limit. Try again in {time}.",
	ReasonEmailWeekLimit:       "This email has reached the weekly limit. Try again in {time}.",
	ReasonEmailMonthLimit:      "This email has reached the monthly limit. Try again in {time}.",
	ReasonIdentifierDayLimit:   "This identifier has reached the daily limit. Try again in {time}.",
	ReasonIdentifierWeekLimit:  "This identifier has reached the weekly limit. Try again in {time}.",
	ReasonIdentifierMonthLimit: "This identifier has reached the monthly limit. Try again in {time}.",
	ReasonIdentifierBlocked:    "This identifier is temporarily blocked. Try again in {time}.",
	ReasonUserHourLimit:        "Too many requests for this action. Try again in {time}.",
	ReasonUserDayLimit:         "Daily limit for this action reached. Try again in {time}.",
	ReasonGlobalMinuteLimit:    "The system is busy. Try again in {time}.",
	ReasonGlobalHourLimit:      "The system is busy. Try again in {time}.",
}

// Message devolve o texto para um motivo, com o tempo de espera já formatado.
func (u UISettings) Message(reason Reason, waitSeconds int) string {
	msg, ok := u.Messages[reason]
	if !ok || strings.TrimSpace(msg) == "" {
		msg = DefaultMessages[reason]
	}
	if msg == "" {
		msg = "Request not allowed."
	}
	wait := FormatWait(waitSeconds)
	if !u.ShowWaitTime || wait == "" {
		wait = "a while"
	}
	return strings.ReplaceAll(msg, "{time}", wait)
}

// FormatWait formata segundos como "1 hour 5 minutes", "50 seconds", etc.
func FormatWait(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	parts := make([]string, 0, 2)
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if hours == 0 && secs > 0 {
		parts = append(parts, plural(secs, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// DefaultRateLimitSettings devolve os limites padrão com todos os escopos habilitados.
func DefaultRateLimitSettings() RateLimitSettings {
	return RateLimitSettings{
		IP: &IPLimits{MaxPerHour: 5, MaxPerDay: 20, CooldownSeconds: 60},
		Email: &EmailLimits{
			MaxPerDay: 3, MaxPerWeek: 10, MaxPerMonth: 30, WaitHours: 24,
		},
		Identifier: &IdentifierLimits{
			MaxPerDay: 3, MaxPerWeek: 10, MaxPerMonth: 30, WaitHours: 24,
			BlockThreshold: 3, BlockHours: 1, BlockDuration: 24,
		},
		Global:       &GlobalLimits{MaxPerMinute: 100, MaxPerHour: 1000},
		Verification: &VerificationLimits{MaxPerHour: 30, MaxPerDay: 200},
		UserActions:  map[string]UserActionLimits{},
		UI:           UISettings{ShowWaitTime: true, Messages: map[Reason]string{}},
	}
}

// Validate checks every enabled section once, at the settings boundary.
// A zero threshold disables that single rule; negative values are rejected.
func (s RateLimitSettings) Validate() error {
	check := func(section, field string, v int) error {
		if v < 0 {
			return fmt.Errorf("%s.%s must be >= 0: %w", section, field, ErrInvalidSettings)
		}
		return nil
	}

	type field struct {
		section, name string
		value         int
	}
	var fields []field
	if s.IP != nil {
		fields = append(fields,
			field{"ip", "max_per_hour", s.IP.MaxPerHour},
			field{"ip", "max_per_day", s.IP.MaxPerDay},
			field{"ip", "cooldown_seconds", s.IP.CooldownSeconds},
		)
	}
	if s.Email != nil {
		fields = append(fields,
			field{"email", "max_per_day", s.Email.MaxPerDay},
			field{"email", "max_per_week", s.Email.MaxPerWeek},
			field{"email", "max_per_month", s.Email.MaxPerMonth},
			field{"email", "wait_hours", s.Email.WaitHours},
		)
	}
	if s.Identifier != nil {
		fields = append(fields,
			field{"identifier", "max_per_day", s.Identifier.MaxPerDay},
			field{"identifier", "max_per_week", s.Identifier.MaxPerWeek},
			field{"identifier", "max_per_month", s.Identifier.MaxPerMonth},
			field{"identifier", "wait_hours", s.Identifier.WaitHours},
			field{"identifier", "block_threshold", s.Identifier.BlockThreshold},
			field{"identifier", "block_hours", s.Identifier.BlockHours},
			field{"identifier", "block_duration", s.Identifier.BlockDuration},
		)
		if s.Identifier.BlockThreshold > 0 && (s.Identifier.BlockHours <= 0 || s.Identifier.BlockDuration <= 0) {
			return fmt.Errorf("identifier block_threshold requires positive block_hours and block_duration: %w", ErrInvalidSettings)
		}
	}
	if s.Global != nil {
		fields = append(fields,
			field{"global", "max_per_minute", s.Global.MaxPerMinute},
			field{"global", "max_per_hour", s.Global.MaxPerHour},
		)
	}
	if s.Verification != nil {
		fields = append(fields,
			field{"verification", "max_per_hour", s.Verification.MaxPerHour},
			field{"verification", "max_per_day", s.Verification.MaxPerDay},
		)
	}
	for action, limits := range s.UserActions {
		if strings.TrimSpace(action) == "" {
			return fmt.Errorf("user action name is empty: %w", ErrInvalidSettings)
		}
		fields = append(fields,
			field{"user_actions." + action, "max_per_hour", limits.MaxPerHour},
			field{"user_actions." + action, "max_per_day", limits.MaxPerDay},
		)
	}
	if s.Logging != nil {
		fields = append(fields, field{"logging", "retention_days", s.Logging.RetentionDays})
	}

	for _, f := range fields {
		if err := check(f.section, f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}
