package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rpgmem/ffcertificate-sub002/internal/config"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
)

func TestInitPersistence_WithoutDatabase(t *testing.T) {
	ctx := context.Background()
	p, err := initPersistence(ctx, config.DatabaseConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.close()

	if p.history != nil || p.audit != nil {
		t.Fatalf("expected no database-backed collaborators")
	}
	cfg, err := p.forms.FormConfig(ctx, 42)
	if err != nil {
		t.Fatalf("expected unknown forms to load, got %v", err)
	}
	if cfg.FormID != 42 || cfg.Policies.Enabled() {
		t.Fatalf("expected an unrestricted form, got %+v", cfg)
	}
	if ok, err := p.tickets.ConsumeIfValid(ctx, 42, "ANY"); err != nil || ok {
		t.Fatalf("expected no ticket to be consumable, got ok=%v err=%v", ok, err)
	}
	if _, err := p.certificates.LookupCertificate(ctx, "ABC"); !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound, got %v", err)
	}
}
