// Package audit disponibiliza AuditSinks para decisões do gatekeeper.
package audit

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// LogSink escreve uma linha key=value por evento.
//
// Degraded-mode events are throttled: at most one line per DegradedEvery,
// with the number of suppressed events reported on the next line.
type LogSink struct {
	logger     *log.Logger
	degraded   rate.Sometimes
	suppressed atomic.Int64
}

var _ ports.AuditSink = (*LogSink)(nil)

func NewLogSink(logger *log.Logger, degradedEvery time.Duration) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	if degradedEvery <= 0 {
		degradedEvery = time.Minute
	}
	return &LogSink{
		logger:   logger,
		degraded: rate.Sometimes{First: 1, Interval: degradedEvery},
	}
}

func (s *LogSink) Record(_ context.Context, ev domain.AuditEvent) error {
	if ev.Kind == domain.AuditKindDegraded {
		logged := false
		s.degraded.Do(func() {
			logged = true
			s.logger.Print(format(ev, s.suppressed.Swap(0)))
		})
		if !logged {
			s.suppressed.Add(1)
		}
		return nil
	}
	s.logger.Print(format(ev, 0))
	return nil
}

func format(ev domain.AuditEvent, suppressed int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "gatekeeper kind=%s id=%s allowed=%t", ev.Kind, ev.ID, ev.Allowed)
	pairs := []struct{ k, v string }{
		{"stage", string(ev.Stage)},
		{"scope", string(ev.Scope)},
		{"reason", ev.Reason},
		{"subject", ev.Subject},
		{"detail", ev.Detail},
	}
	for _, p := range pairs {
		if p.v != "" {
			fmt.Fprintf(&b, " %s=%q", p.k, p.v)
		}
	}
	if ev.FormID != 0 {
		fmt.Fprintf(&b, " form_id=%d", ev.FormID)
	}
	if suppressed > 0 {
		fmt.Fprintf(&b, " suppressed=%d", suppressed)
	}
	return b.String()
}

// Multi repassa o evento para vários sinks e devolve o primeiro erro.
type Multi []ports.AuditSink

func (m Multi) Record(ctx context.Context, ev domain.AuditEvent) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
