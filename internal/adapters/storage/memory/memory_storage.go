// Package memory disponibiliza implementações em memória dos ports de armazenamento.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// Storage é um CounterStore em memória com TTL por chave.
type Storage struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

type entry struct {
	value     int64
	expiresAt time.Time
}

var _ ports.CounterStore = (*Storage)(nil)

func NewStorage() *Storage {
	return NewStorageWithClock(time.Now)
}

// NewStorageWithClock permite controlar o relógio nos testes.
func NewStorageWithClock(now func() time.Time) *Storage {
	return &Storage{items: make(map[string]entry), now: now}
}

func (s *Storage) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return 0, false, nil
	}
	return e.value, true, nil
}

func (s *Storage) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("ttl must be positive for %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		e = entry{expiresAt: s.now().Add(ttl)}
	}
	e.value++
	s.items[key] = e
	return e.value, nil
}

func (s *Storage) SetWithTTL(_ context.Context, key string, value int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		delete(s.items, key)
		return nil
	}
	s.items[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// TTL devolve o tempo restante de uma chave, ou zero se ausente.
func (s *Storage) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return 0
	}
	return e.expiresAt.Sub(s.now())
}

// Cleanup remove chaves expiradas.
func (s *Storage) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.items {
		if !now.Before(e.expiresAt) {
			delete(s.items, k)
		}
	}
}

// StartJanitor limpa chaves expiradas periodicamente até o ctx encerrar.
func (s *Storage) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// live must be called with s.mu held.
func (s *Storage) live(key string) (entry, bool) {
	e, ok := s.items[key]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.items, key)
		return entry{}, false
	}
	return e, true
}
