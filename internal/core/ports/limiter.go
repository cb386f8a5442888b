// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
)

type RateLimiter interface {
	CheckAll(ctx context.Context, ip, email, identifier string, userID int64) domain.Decision
	CheckVerificationLimit(ctx context.Context, ip string) domain.Decision
	CheckUserLimit(ctx context.Context, userID int64, action string, maxPerHour, maxPerDay int) domain.Decision
}

// SettingsProvider entrega o snapshot atual de configuração; é só leitura.
type SettingsProvider interface {
	RateLimitSettings(ctx context.Context) domain.RateLimitSettings
}

// FormConfigProvider resolve as políticas de restrição de um formulário.
type FormConfigProvider interface {
	FormConfig(ctx context.Context, formID int64) (domain.FormConfig, error)
}

// AuditSink recebe decisões e eventos de modo degradado; best-effort.
type AuditSink interface {
	Record(ctx context.Context, ev domain.AuditEvent) error
}
