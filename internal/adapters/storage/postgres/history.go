package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// History conta submissões persistidas para os limites de email e identificador.
type History struct {
	DB DB
}

var _ ports.HistoricalCounter = (*History)(nil)

func (h *History) CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := h.DB.QueryRow(ctx, `
		SELECT count(*) FROM submissions
		WHERE lower(email) = lower($1) AND created_at >= $2
	`, email, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions by email: %w", err)
	}
	return n, nil
}

// CountByIdentifierSince espera o identificador já normalizado.
func (h *History) CountByIdentifierSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	var n int
	err := h.DB.QueryRow(ctx, `
		SELECT count(*) FROM submissions
		WHERE regexp_replace(upper(identifier), '[^A-Z0-9]', '', 'g') = $1 AND created_at >= $2
	`, identifier, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions by identifier: %w", err)
	}
	return n, nil
}
