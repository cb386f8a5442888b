package memory

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// Forms guarda configurações de formulário e consome tickets em memória.
// Formulários não cadastrados não têm restrições, como no Postgres.
type Forms struct {
	mu    sync.Mutex
	forms map[int64]domain.FormConfig
}

var (
	_ ports.FormConfigProvider = (*Forms)(nil)
	_ ports.TicketConsumer     = (*Forms)(nil)
)

func NewForms(configs ...domain.FormConfig) *Forms {
	f := &Forms{forms: make(map[int64]domain.FormConfig, len(configs))}
	for _, cfg := range configs {
		f.forms[cfg.FormID] = cfg
	}
	return f
}

// Put adiciona ou substitui a configuração de um formulário.
func (f *Forms) Put(cfg domain.FormConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms[cfg.FormID] = cfg
}

func (f *Forms) FormConfig(_ context.Context, formID int64) (domain.FormConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.forms[formID]
	if !ok {
		return domain.FormConfig{FormID: formID}, nil
	}
	// Copy the ticket pool so callers never observe a later consumption.
	if cfg.Policies.Ticket != nil {
		ticket := *cfg.Policies.Ticket
		ticket.Codes = append([]string(nil), ticket.Codes...)
		cfg.Policies.Ticket = &ticket
	}
	return cfg, nil
}

// ConsumeIfValid remove o ticket do pool sob lock; só uma chamada concorrente vence.
func (f *Forms) ConsumeIfValid(_ context.Context, formID int64, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.forms[formID]
	if !ok || cfg.Policies.Ticket == nil {
		return false, nil
	}
	pool := cfg.Policies.Ticket
	idx := lo.IndexOf(lo.Map(pool.Codes, func(c string, _ int) string {
		return domain.NormalizeTicket(c, pool.IgnoreDashes)
	}), domain.NormalizeTicket(code, pool.IgnoreDashes))
	if idx < 0 {
		return false, nil
	}
	remaining := append(append([]string(nil), pool.Codes[:idx]...), pool.Codes[idx+1:]...)
	cfg.Policies.Ticket = &domain.TicketPolicy{Codes: remaining, IgnoreDashes: pool.IgnoreDashes}
	f.forms[formID] = cfg
	return true, nil
}
