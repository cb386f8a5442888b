// Package handlers agrupa os handlers HTTP do gatekeeper.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rpgmem/ffcertificate-sub002/internal/adapters/http/middleware"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/services"
)

const maxBodyBytes = 64 << 10

// GateHandler expõe o gatekeeper por HTTP.
type GateHandler struct {
	Gate         *services.Gatekeeper
	Tickets      ports.TicketConsumer
	Certificates ports.CertificateLookup
	Settings     ports.SettingsProvider
	Audit        ports.AuditSink
}

type submissionRequest struct {
	Email      string `json:"email"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Ticket     string `json:"ticket"`
	Security   struct {
		Honeypot string `json:"honeypot"`
		Answer   string `json:"answer"`
		Hash     string `json:"hash"`
	} `json:"security"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Reason      string `json:"reason,omitempty"`
	Stage       string `json:"stage,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
	DecisionID  string `json:"decision_id,omitempty"`
}

// Challenge devolve um novo desafio; a resposta nunca sai do servidor.
func (h *GateHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	c := h.Gate.Challenge()
	writeJSON(w, http.StatusOK, map[string]string{"label": c.Label, "hash": c.Hash})
}

// Submit avalia uma submissão e, se houver ticket, consome-o exatamente uma vez.
func (h *GateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	formID, err := strconv.ParseInt(chi.URLParam(r, "formID"), 10, 64)
	if err != nil || formID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form id"})
		return
	}

	var req submissionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sub := domain.Submission{
		FormID:     formID,
		IP:         middleware.ClientIP(r),
		Email:      req.Email,
		Identifier: req.Identifier,
		UserID:     middleware.UserIDFromContext(r.Context()),
		Password:   req.Password,
		TicketCode: req.Ticket,
		Security: domain.SecurityFields{
			Honeypot: req.Security.Honeypot,
			Answer:   req.Security.Answer,
			Hash:     req.Security.Hash,
		},
	}

	ctx := r.Context()
	decision, err := h.Gate.Admit(ctx, sub)
	if err != nil {
		log.Printf("admit submission failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}

	if !decision.Allowed {
		h.record(ctx, formID, decision)
		h.writeDenied(w, decision)
		return
	}

	if decision.IsTicket {
		consumed, err := h.Tickets.ConsumeIfValid(ctx, formID, decision.Ticket)
		if err != nil {
			log.Printf("consume ticket failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "ticket could not be confirmed", DecisionID: decision.DecisionID})
			return
		}
		if !consumed {
			decision.Allowed = false
			decision.Stage = domain.StageRestriction
			decision.Reason = string(domain.RestrictionTicketInvalid)
			decision.Message = domain.RestrictionMessages[domain.RestrictionTicketInvalid]
			h.record(ctx, formID, decision)
			writeJSON(w, http.StatusConflict, errorResponse{
				Error:      decision.Message,
				Reason:     decision.Reason,
				Stage:      string(decision.Stage),
				DecisionID: decision.DecisionID,
			})
			return
		}
	}

	h.record(ctx, formID, decision)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"decision_id": decision.DecisionID,
		"ticket_used": decision.IsTicket,
	})
}

// Verify consulta um certificado pelo código de autenticação.
func (h *GateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	cert, err := h.Certificates.LookupCertificate(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, domain.ErrCertificateNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "certificate not found"})
		return
	}
	if err != nil {
		log.Printf("certificate lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_code": cert.AuthCode,
		"form_id":   cert.FormID,
		"holder":    cert.Holder,
		"issued_at": cert.IssuedAt.UTC().Format(time.RFC3339),
	})
}

// Health responde ok para checagens de liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *GateHandler) writeDenied(w http.ResponseWriter, d domain.GateDecision) {
	status := http.StatusForbidden
	switch {
	case d.Stage == domain.StageChallenge:
		status = http.StatusBadRequest
	case d.Stage == domain.StageRateLimit && d.Reason != string(domain.ReasonBlocked):
		status = http.StatusTooManyRequests
		if d.WaitSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(d.WaitSeconds))
		}
	}
	writeJSON(w, status, errorResponse{
		Error:       d.Message,
		Reason:      d.Reason,
		Stage:       string(d.Stage),
		WaitSeconds: d.WaitSeconds,
		DecisionID:  d.DecisionID,
	})
}

// record entrega a decisão ao AuditSink quando o logging está habilitado.
func (h *GateHandler) record(ctx context.Context, formID int64, d domain.GateDecision) {
	if h.Audit == nil || h.Settings == nil {
		return
	}
	logging := h.Settings.RateLimitSettings(ctx).Logging
	if logging == nil || (d.Allowed && !logging.LogAllowed) || (!d.Allowed && !logging.LogBlocked) {
		return
	}
	err := h.Audit.Record(ctx, domain.AuditEvent{
		ID:         d.DecisionID,
		Kind:       domain.AuditKindDecision,
		Allowed:    d.Allowed,
		Stage:      d.Stage,
		Scope:      d.Scope,
		Reason:     d.Reason,
		Subject:    d.Subject,
		FormID:     formID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("audit record failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
