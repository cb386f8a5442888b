package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rpgmem/ffcertificate-sub002/internal/adapters/http/middleware"
	"github.com/rpgmem/ffcertificate-sub002/internal/adapters/storage/memory"
	"github.com/rpgmem/ffcertificate-sub002/internal/config"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/services"
)

type recordingSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *recordingSink) Record(_ context.Context, ev domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixedCertificates map[string]ports.Certificate

func (f fixedCertificates) LookupCertificate(_ context.Context, code string) (ports.Certificate, error) {
	cert, ok := f[code]
	if !ok {
		return ports.Certificate{}, domain.ErrCertificateNotFound
	}
	return cert, nil
}

type testServer struct {
	router    http.Handler
	challenge *services.ChallengeService
	audit     *recordingSink
}

func newTestServer(t *testing.T, settings domain.RateLimitSettings, forms *memory.Forms) *testServer {
	t.Helper()
	store, err := config.NewSettingsStore(settings)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	limiter, err := services.NewRateLimiterService(memory.NewStorage(), services.Config{Settings: store})
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	challenge, err := services.NewChallengeService("handler-salt")
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	gate, err := services.NewGatekeeper(challenge, limiter, forms)
	if err != nil {
		t.Fatalf("gatekeeper: %v", err)
	}
	sink := &recordingSink{}
	h := &GateHandler{
		Gate:    gate,
		Tickets: forms,
		Certificates: fixedCertificates{"ABC123": {
			AuthCode: "ABC123", FormID: 1, Holder: "Ana", IssuedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		}},
		Settings: store,
		Audit:    sink,
	}

	r := chi.NewRouter()
	r.Use(middleware.AuthenticatedUser(testUserHeader))
	r.Get("/healthz", Health)
	r.Get("/challenge", h.Challenge)
	r.Post("/forms/{formID}/submissions", h.Submit)
	r.Get("/verify/{code}", h.Verify)
	return &testServer{router: r, challenge: challenge, audit: sink}
}

const testUserHeader = "X-Auth-User-Id"

func (s *testServer) submit(t *testing.T, formID string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return s.submitAs(t, formID, body, "")
}

// submitAs envia a submissão com o cabeçalho do proxy de autenticação quando userID não é vazio.
func (s *testServer) submitAs(t *testing.T, formID string, body map[string]any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if _, ok := body["security"]; !ok {
		c := s.challenge.Generate()
		body["security"] = map[string]string{"answer": strconv.Itoa(c.Answer), "hash": c.Hash}
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/forms/"+formID+"/submissions", bytes.NewReader(raw))
	req.RemoteAddr = "198.51.100.7:40000"
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, domain.RateLimitSettings{}, memory.NewForms())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestChallengeEndpointHidesAnswer(t *testing.T) {
	s := newTestServer(t, domain.RateLimitSettings{}, memory.NewForms())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/challenge", nil))

	body := decode(t, rec)
	if body["label"] == "" || body["hash"] == "" {
		t.Fatalf("expected label and hash, got %v", body)
	}
	if _, leaked := body["answer"]; leaked {
		t.Fatalf("answer must not be returned")
	}
}

func TestSubmit_Accepted(t *testing.T) {
	s := newTestServer(t, domain.RateLimitSettings{}, memory.NewForms(domain.FormConfig{FormID: 1}))

	rec := s.submit(t, "1", map[string]any{"email": "a@b.com"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["decision_id"] == "" || body["ticket_used"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSubmit_BadRequests(t *testing.T) {
	s := newTestServer(t, domain.RateLimitSettings{}, memory.NewForms(domain.FormConfig{FormID: 1}))

	if rec := s.submit(t, "abc", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid form id, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/forms/1/submissions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid body, got %d", rec.Code)
	}

	rec = s.submit(t, "1", map[string]any{"security": map[string]string{"honeypot": "x"}})
	if rec.Code != http.StatusBadRequest || decode(t, rec)["stage"] != string(domain.StageChallenge) {
		t.Fatalf("expected challenge rejection, got %d", rec.Code)
	}
}

func TestSubmit_UnknownFormIsUnrestricted(t *testing.T) {
	s := newTestServer(t, domain.RateLimitSettings{}, memory.NewForms())
	if rec := s.submit(t, "404", map[string]any{}); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestSubmit_UserIDInBodyIsIgnored(t *testing.T) {
	settings := domain.RateLimitSettings{
		UserActions: map[string]domain.UserActionLimits{"submission": {MaxPerHour: 1}},
	}
	s := newTestServer(t, settings, memory.NewForms(domain.FormConfig{FormID: 1}))

	for i := 0; i < 2; i++ {
		if rec := s.submit(t, "1", map[string]any{"user_id": 7}); rec.Code != http.StatusAccepted {
			t.Fatalf("attempt %d: expected anonymous submission accepted, got %d", i+1, rec.Code)
		}
	}
}

func TestSubmit_AuthenticatedUserIsLimited(t *testing.T) {
	settings := domain.RateLimitSettings{
		UserActions: map[string]domain.UserActionLimits{"submission": {MaxPerHour: 1}},
	}
	s := newTestServer(t, settings, memory.NewForms(domain.FormConfig{FormID: 1}))

	if rec := s.submitAs(t, "1", map[string]any{}, "7"); rec.Code != http.StatusAccepted {
		t.Fatalf("expected first submission accepted, got %d", rec.Code)
	}
	if rec := s.submitAs(t, "1", map[string]any{}, "7"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the same user, got %d", rec.Code)
	}
	if rec := s.submitAs(t, "1", map[string]any{}, "8"); rec.Code != http.StatusAccepted {
		t.Fatalf("expected another user to be accepted, got %d", rec.Code)
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	settings := domain.RateLimitSettings{
		IP:      &domain.IPLimits{MaxPerHour: 1},
		Logging: &domain.LoggingSettings{LogBlocked: true},
		UI:      domain.UISettings{ShowWaitTime: true},
	}
	s := newTestServer(t, settings, memory.NewForms(domain.FormConfig{FormID: 1}))

	if rec := s.submit(t, "1", map[string]any{}); rec.Code != http.StatusAccepted {
		t.Fatalf("expected first submission accepted, got %d", rec.Code)
	}
	rec := s.submit(t, "1", map[string]any{})
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "3600" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	body := decode(t, rec)
	if body["reason"] != string(domain.ReasonIPHourLimit) || body["wait_seconds"] != float64(3600) {
		t.Fatalf("unexpected body %v", body)
	}

	if len(s.audit.events) != 1 || s.audit.events[0].Subject != "198.51.100.7" || s.audit.events[0].FormID != 1 {
		t.Fatalf("expected one blocked audit event with raw subject, got %+v", s.audit.events)
	}
}

func TestSubmit_BlacklistedIsForbidden(t *testing.T) {
	settings := domain.RateLimitSettings{Blacklist: &domain.ListSet{IPs: []string{"198.51.100.0/24"}}}
	s := newTestServer(t, settings, memory.NewForms(domain.FormConfig{FormID: 1}))

	rec := s.submit(t, "1", map[string]any{})
	if rec.Code != http.StatusForbidden || rec.Header().Get("Retry-After") != "" {
		t.Fatalf("expected 403 without Retry-After, got %d", rec.Code)
	}
}

func TestSubmit_TicketConsumedOnce(t *testing.T) {
	forms := memory.NewForms(domain.FormConfig{FormID: 3, Policies: domain.RestrictionPolicies{
		Ticket: &domain.TicketPolicy{Codes: []string{"TK-0001"}, IgnoreDashes: true},
	}})
	s := newTestServer(t, domain.RateLimitSettings{}, forms)

	rec := s.submit(t, "3", map[string]any{"ticket": "tk0001"})
	if rec.Code != http.StatusAccepted || decode(t, rec)["ticket_used"] != true {
		t.Fatalf("expected ticket admission, got %d", rec.Code)
	}

	rec = s.submit(t, "3", map[string]any{"ticket": "TK-0001"})
	if rec.Code != http.StatusForbidden || decode(t, rec)["reason"] != string(domain.RestrictionTicketInvalid) {
		t.Fatalf("expected consumed ticket to be rejected, got %d", rec.Code)
	}
}

func TestSubmit_RestrictionDenied(t *testing.T) {
	forms := memory.NewForms(domain.FormConfig{FormID: 4, Policies: domain.RestrictionPolicies{
		Password: &domain.PasswordPolicy{ValidationCode: "open-sesame"},
	}})
	s := newTestServer(t, domain.RateLimitSettings{}, forms)

	rec := s.submit(t, "4", map[string]any{"password": "nope"})
	if rec.Code != http.StatusForbidden || decode(t, rec)["reason"] != string(domain.RestrictionPasswordInvalid) {
		t.Fatalf("expected password rejection, got %d", rec.Code)
	}
	if rec := s.submit(t, "4", map[string]any{"password": "open-sesame"}); rec.Code != http.StatusAccepted {
		t.Fatalf("expected correct password to be accepted, got %d", rec.Code)
	}
}

func TestVerify(t *testing.T) {
	s := newTestServer(t, domain.RateLimitSettings{}, memory.NewForms())

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify/ABC123", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["holder"] != "Ana" {
		t.Fatalf("expected certificate, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify/NOPE", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
