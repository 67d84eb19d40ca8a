package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/agendafacil/backend/internal/auth"
	"github.com/agendafacil/backend/internal/dispatch"
	"github.com/agendafacil/backend/internal/relay"
	"github.com/agendafacil/backend/internal/repo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RelaySender delivers one confirmation through the webhook forwarder. The
// authenticated user id travels in the context (set by the auth middleware).
type RelaySender struct {
	Webhook *relay.Client
}

func (s *RelaySender) SendConfirmation(ctx context.Context, req dispatch.Request) (int, string, error) {
	c := relay.Confirmation{
		AppointmentID: req.AppointmentID,
		Phone:         req.Phone,
		PatientName:   req.PatientName,
		ScheduledAt:   req.ScheduledAt,
		ServiceName:   req.ServiceName,
	}
	status, body, err := s.Webhook.Forward(ctx, relay.WebhookPayload(c, auth.UserIDFrom(ctx)))
	return status, strings.TrimSpace(string(body)), err
}

// GormConfirmationStore persists the confirmation-sent flag.
type GormConfirmationStore struct {
	DB *gorm.DB
}

func (s *GormConfirmationStore) MarkConfirmationSent(ctx context.Context, id uuid.UUID) error {
	return repo.MarkConfirmationSent(ctx, s.DB, id)
}

// RelayConfirmation validates, normalizes and forwards a single confirmation
// to the automation webhook, relaying the upstream status and body untouched.
func (h *Handler) RelayConfirmation(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	c, issues, err := relay.ParseRequest(r.Body)
	if err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if len(issues) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": "validação", "issues": issues})
		return
	}
	status, body, err := h.Webhook.Forward(r.Context(), relay.WebhookPayload(c, claims.UserID))
	if errors.Is(err, relay.ErrNotConfigured) {
		log.Printf("[relay] CONFIRMATION_WEBHOOK_URL não configurada")
		http.Error(w, `{"error":"webhook não configurado"}`, http.StatusInternalServerError)
		return
	}
	if err != nil {
		log.Printf("[relay] webhook inacessível appointment=%s: %v", c.AppointmentID, err)
		http.Error(w, `{"error":"falha ao contatar o webhook"}`, http.StatusBadGateway)
		return
	}
	if json.Valid(body) {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

type sendConfirmationsRequest struct {
	AppointmentIDs []string `json:"appointment_ids"`
}

// SendConfirmations runs one sequential confirmation batch for the selected
// appointments and answers with the aggregate summary.
func (h *Handler) SendConfirmations(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil || h.Dispatcher == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	var req sendConfirmationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if len(req.AppointmentIDs) == 0 {
		http.Error(w, `{"error":"nenhum agendamento selecionado"}`, http.StatusBadRequest)
		return
	}
	ids := make([]uuid.UUID, 0, len(req.AppointmentIDs))
	for _, s := range req.AppointmentIDs {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			http.Error(w, `{"error":"appointment_ids contém uuid inválido"}`, http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	rows, err := repo.AppointmentsForConfirmation(r.Context(), h.DB, ids)
	if err != nil {
		log.Printf("[confirmacao] carregar agendamentos: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if len(rows) == 0 {
		http.Error(w, `{"error":"nenhum agendamento selecionado"}`, http.StatusBadRequest)
		return
	}
	appts := make([]dispatch.Appointment, len(rows))
	for i, row := range rows {
		phone := ""
		if row.PhoneNumber != nil {
			phone = strings.TrimSpace(*row.PhoneNumber)
		}
		service := ""
		if row.ServiceName != nil {
			service = *row.ServiceName
		}
		appts[i] = dispatch.Appointment{
			ID:          row.ID,
			Phone:       phone,
			LeadPhone:   strings.TrimSpace(row.LeadPhone),
			PatientName: row.PatientName,
			ServiceName: service,
			ScheduledAt: row.ScheduledAt,
		}
	}
	// O lote roda até o fim mesmo que o cliente desconecte; só o cancelamento
	// do servidor interrompe.
	sum, err := h.Dispatcher.Run(context.WithoutCancel(r.Context()), appts)
	switch {
	case errors.Is(err, dispatch.ErrBatchInFlight):
		http.Error(w, `{"error":"já existe um envio em andamento"}`, http.StatusConflict)
		return
	case errors.Is(err, dispatch.ErrEmptySelection):
		http.Error(w, `{"error":"nenhum agendamento selecionado"}`, http.StatusBadRequest)
		return
	case err != nil:
		log.Printf("[confirmacao] lote falhou: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix("appointments:")
		h.Cache.DeletePrefix("dashboard:")
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"total":   sum.Total,
		"sent":    sum.Sent,
		"errors":  sum.Errors,
		"partial": sum.Partial(),
		"message": sum.Text(),
	})
}

// ConfirmationProgress returns the live snapshot of the running batch.
func (h *Handler) ConfirmationProgress(w http.ResponseWriter, r *http.Request) {
	if h.Dispatcher == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Dispatcher.Progress())
}
