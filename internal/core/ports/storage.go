// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"
)

// CounterStore é o serviço de contadores com TTL que sustenta as janelas.
//
// Increment must be a single atomic read-modify-write per key: it creates the
// key with value 1 and the given TTL when absent, otherwise adds 1 and leaves
// the TTL untouched. Errors mean the store could not be reached; callers
// decide whether to fail open.
type CounterStore interface {
	Get(ctx context.Context, key string) (value int64, found bool, err error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	SetWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) error
}

// HistoricalCounter conta submissões persistidas desde um instante.
type HistoricalCounter interface {
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error)
	CountByIdentifierSince(ctx context.Context, identifier string, since time.Time) (int, error)
}

// TicketConsumer consome um ticket de forma atômica (delete-if-present).
type TicketConsumer interface {
	ConsumeIfValid(ctx context.Context, formID int64, code string) (bool, error)
}

// CertificateLookup é o endpoint público de verificação protegido pelo limiter.
type CertificateLookup interface {
	LookupCertificate(ctx context.Context, authCode string) (Certificate, error)
}

// Certificate é a visão pública de um certificado emitido.
type Certificate struct {
	AuthCode string
	FormID   int64
	IssuedAt time.Time
	Holder   string
}
