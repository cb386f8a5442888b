package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// AuditWriter grava eventos do gatekeeper na tabela gate_events.
type AuditWriter struct {
	DB DB
}

var _ ports.AuditSink = (*AuditWriter)(nil)

func (w *AuditWriter) Record(ctx context.Context, ev domain.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	_, err := w.DB.Exec(ctx, `
		INSERT INTO gate_events
		(id, kind, allowed, stage, scope, reason, subject, form_id, detail, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, ev.ID, ev.Kind, ev.Allowed, string(ev.Stage), string(ev.Scope), ev.Reason, ev.Subject, ev.FormID, ev.Detail, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert gate event: %w", err)
	}
	return nil
}

// Purge apaga eventos mais antigos que a retenção configurada.
func (w *AuditWriter) Purge(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	tag, err := w.DB.Exec(ctx, `DELETE FROM gate_events WHERE occurred_at < $1`, now.AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, fmt.Errorf("purge gate events: %w", err)
	}
	return tag.RowsAffected(), nil
}
