// Package domain concentra entidades e estruturas centrais do gatekeeper de submissões.
package domain

import (
	"fmt"
	"time"
)

// Scope identifica a família de contadores de uma regra.
type Scope string

const (
	ScopeIP           Scope = "ip"
	ScopeEmail        Scope = "email"
	ScopeIdentifier   Scope = "identifier"
	ScopeUserAction   Scope = "user_action"
	ScopeGlobal       Scope = "global"
	ScopeVerification Scope = "verification"
	ScopeBlacklist    Scope = "blacklist"
	ScopeWhitelist    Scope = "whitelist"
	// ScopeAll marks a CheckAll decision that passed every scope.
	ScopeAll Scope = "all"
)

// Window é a janela de contagem; sua duração é o TTL do contador.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
	WindowWeek   Window = "week"
	WindowMonth  Window = "month"
)

// Duration retorna o comprimento da janela.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Seconds retorna o comprimento da janela em segundos.
func (w Window) Seconds() int {
	return int(w.Duration() / time.Second)
}

// Reason é o motivo de uma negação.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonBlocked              Reason = "blocked"
	ReasonIPCooldown           Reason = "ip_cooldown"
	ReasonIPHourLimit          Reason = "ip_hour_limit"
	ReasonIPDayLimit           Reason = "ip_day_limit"
	ReasonVerificationHour     Reason = "verification_hour_limit"
	ReasonVerificationDay      Reason = "verification_day_limit"
	ReasonEmailDayLimit        Reason = "email_day_limit"
	ReasonEmailWeekLimit       Reason = "email_week_limit"
	ReasonEmailMonthLimit      Reason = "email_month_limit"
	ReasonIdentifierDayLimit   Reason = "identifier_day_limit"
	ReasonIdentifierWeekLimit  Reason = "identifier_week_limit"
	ReasonIdentifierMonthLimit Reason = "identifier_month_limit"
	ReasonIdentifierBlocked    Reason = "identifier_blocked"
	ReasonUserHourLimit        Reason = "user_hour_limit"
	ReasonUserDayLimit         Reason = "user_day_limit"
	ReasonGlobalMinuteLimit    Reason = "global_minute_limit"
	ReasonGlobalHourLimit      Reason = "global_hour_limit"
)

// CounterKey é a tupla (scope, subject, window) que endereça um contador.
type CounterKey struct {
	Scope   Scope
	Subject string
	Window  Window
}

// String devolve a chave usada no CounterStore.
func (k CounterKey) String() string {
	return fmt.Sprintf("gatekeeper:%s:%s:%s", k.Scope, k.Window, k.Subject)
}

// CooldownKey devolve a chave do marcador de cooldown de um IP.
func CooldownKey(ip string) string {
	return fmt.Sprintf("gatekeeper:%s:cooldown:%s", ScopeIP, ip)
}

// Decision é o resultado de qualquer verificação do RateLimiter.
type Decision struct {
	Allowed     bool
	Reason      Reason
	WaitSeconds int
	Scope       Scope
	// Subject carries the raw subject only when the logging policy allows it;
	// otherwise it holds a salted hash prefix.
	Subject string
	Message string
}

// Allow constrói uma decisão positiva para o escopo informado.
func Allow(scope Scope) Decision {
	return Decision{Allowed: true, Scope: scope}
}

// Deny constrói uma decisão negativa.
func Deny(scope Scope, reason Reason, waitSeconds int) Decision {
	if waitSeconds < 0 {
		waitSeconds = 0
	}
	return Decision{Allowed: false, Scope: scope, Reason: reason, WaitSeconds: waitSeconds}
}
