package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

type Certificates struct {
	DB DB
}

var _ ports.CertificateLookup = (*Certificates)(nil)

func (c *Certificates) LookupCertificate(ctx context.Context, authCode string) (ports.Certificate, error) {
	authCode = strings.ToUpper(strings.TrimSpace(authCode))
	if authCode == "" {
		return ports.Certificate{}, domain.ErrCertificateNotFound
	}
	var cert ports.Certificate
	err := c.DB.QueryRow(ctx, `
		SELECT auth_code, form_id, holder, issued_at FROM certificates WHERE upper(auth_code) = $1
	`, authCode).Scan(&cert.AuthCode, &cert.FormID, &cert.Holder, &cert.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.Certificate{}, domain.ErrCertificateNotFound
	}
	if err != nil {
		return ports.Certificate{}, fmt.Errorf("lookup certificate: %w", err)
	}
	return cert, nil
}
