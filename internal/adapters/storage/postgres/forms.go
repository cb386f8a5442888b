package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// Forms lê as políticas de restrição e consome tickets com DELETE condicional.
// The ticket pool is exposed as code_normalized so the entry a check matches
// is the exact value ConsumeIfValid deletes.
type Forms struct {
	DB DB
}

var (
	_ ports.FormConfigProvider = (*Forms)(nil)
	_ ports.TicketConsumer     = (*Forms)(nil)
)

func (f *Forms) FormConfig(ctx context.Context, formID int64) (domain.FormConfig, error) {
	var (
		passwordEnabled, denyEnabled, allowEnabled, ticketEnabled, ignoreDashes bool
		validationCode, deniedList, allowedList                                 string
		codes                                                                   []string
	)
	err := f.DB.QueryRow(ctx, `
		SELECT r.password_enabled, r.validation_code,
		       r.denylist_enabled, r.denied_users_list,
		       r.allowlist_enabled, r.allowed_users_list,
		       r.ticket_enabled, r.ticket_ignore_dashes,
		       COALESCE((SELECT array_agg(t.code_normalized ORDER BY t.code_normalized) FROM form_tickets t WHERE t.form_id = r.form_id), '{}')
		FROM form_restrictions r WHERE r.form_id = $1
	`, formID).Scan(
		&passwordEnabled, &validationCode,
		&denyEnabled, &deniedList,
		&allowEnabled, &allowedList,
		&ticketEnabled, &ignoreDashes,
		&codes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// A form without a restrictions row has no policies.
		return domain.FormConfig{FormID: formID}, nil
	}
	if err != nil {
		return domain.FormConfig{}, fmt.Errorf("load form restrictions: %w", err)
	}

	cfg := domain.FormConfig{FormID: formID}
	if passwordEnabled {
		cfg.Policies.Password = &domain.PasswordPolicy{ValidationCode: validationCode}
	}
	if denyEnabled {
		cfg.Policies.Denylist = &domain.ListPolicy{Entries: domain.ParseList(deniedList)}
	}
	if allowEnabled {
		cfg.Policies.Allowlist = &domain.ListPolicy{Entries: domain.ParseList(allowedList)}
	}
	if ticketEnabled {
		cfg.Policies.Ticket = &domain.TicketPolicy{Codes: codes, IgnoreDashes: ignoreDashes}
	}
	return cfg, nil
}

// ConsumeIfValid apaga o ticket se ainda existir; só uma transação concorrente afeta a linha.
// code is the pool entry reported by the restriction check.
func (f *Forms) ConsumeIfValid(ctx context.Context, formID int64, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	tag, err := f.DB.Exec(ctx, `
		DELETE FROM form_tickets WHERE form_id = $1 AND code_normalized = $2
	`, formID, code)
	if err != nil {
		return false, fmt.Errorf("consume ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddTickets insere códigos no pool, normalizados com a política do formulário.
func (f *Forms) AddTickets(ctx context.Context, formID int64, ignoreDashes bool, codes ...string) error {
	for _, code := range codes {
		normalized := domain.NormalizeTicket(code, ignoreDashes)
		if normalized == "" {
			continue
		}
		if _, err := f.DB.Exec(ctx, `
			INSERT INTO form_tickets (form_id, code, code_normalized) VALUES ($1, $2, $3)
			ON CONFLICT (form_id, code_normalized) DO NOTHING
		`, formID, code, normalized); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
	}
	return nil
}
