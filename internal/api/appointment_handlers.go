package api

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/agendafacil/backend/internal/agenda"
	"github.com/agendafacil/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ListAppointments returns one day (?date=) or one range (?from=&to=) of
// appointments, bucketed by status for the agenda view.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	date := q.Get("date")
	from, to := q.Get("from"), q.Get("to")
	switch {
	case date != "":
		if !dateRegex.MatchString(date) {
			http.Error(w, `{"error":"date deve ser YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		key := "appointments:day:" + date
		if h.Cache != nil {
			if cached := h.Cache.Get(key); cached != nil {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(cached)
				return
			}
		}
		list, err := repo.ListAppointmentsByDate(r.Context(), h.DB, date)
		if err != nil {
			log.Printf("[agenda] listar por data: %v", err)
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		buf, _ := json.Marshal(map[string]interface{}{
			"appointments": list,
			"buckets":      agenda.Bucket(list),
		})
		if h.Cache != nil {
			h.Cache.Set(key, buf)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf)
	case from != "" && to != "":
		if !dateRegex.MatchString(from) || !dateRegex.MatchString(to) || to < from {
			http.Error(w, `{"error":"from e to devem ser YYYY-MM-DD, com to >= from"}`, http.StatusBadRequest)
			return
		}
		list, err := repo.ListAppointmentsBetweenDates(r.Context(), h.DB, from, to)
		if err != nil {
			log.Printf("[agenda] listar semana: %v", err)
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"appointments": list,
			"days":         agenda.GroupByDay(list),
		})
	default:
		http.Error(w, `{"error":"informe date ou from/to"}`, http.StatusBadRequest)
	}
}

// ListPendingConfirmation returns the selectable set for a confirmation batch:
// appointments of the day without the sent flag and not cancelled.
func (h *Handler) ListPendingConfirmation(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	date := r.URL.Query().Get("date")
	if !dateRegex.MatchString(date) {
		http.Error(w, `{"error":"date deve ser YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	list, err := repo.ListPendingConfirmationByDate(r.Context(), h.DB, date)
	if err != nil {
		log.Printf("[agenda] pendentes de confirmação: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"appointments": list})
}

type createAppointmentRequest struct {
	LeadID           *string  `json:"lead_id"`
	ScheduledAt      string   `json:"scheduled_at"`
	Status           string   `json:"status"`
	PatientName      string   `json:"patient_name"`
	PhoneNumber      *string  `json:"phone_number"`
	ServiceName      *string  `json:"service_name"`
	ProfessionalName *string  `json:"professional_name"`
	Price            *float64 `json:"price"`
	Duracao          *int     `json:"duracao"`
	Notes            *string  `json:"notes"`
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	req.ScheduledAt = strings.TrimSpace(req.ScheduledAt)
	if len(req.ScheduledAt) < 16 || agenda.ExtractDate(req.ScheduledAt) == "" {
		http.Error(w, `{"error":"scheduled_at deve ser YYYY-MM-DDTHH:MM:SS"}`, http.StatusBadRequest)
		return
	}
	if req.Status != "" && !repo.ValidStatus(req.Status) {
		http.Error(w, `{"error":"status inválido"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.PatientName) == "" {
		http.Error(w, `{"error":"patient_name obrigatório"}`, http.StatusBadRequest)
		return
	}
	a := repo.Appointment{
		ScheduledAt:      req.ScheduledAt,
		Status:           req.Status,
		PatientName:      strings.TrimSpace(req.PatientName),
		PhoneNumber:      req.PhoneNumber,
		ServiceName:      req.ServiceName,
		ProfessionalName: req.ProfessionalName,
		Price:            req.Price,
		Duracao:          req.Duracao,
		Notes:            req.Notes,
	}
	if req.LeadID != nil && strings.TrimSpace(*req.LeadID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.LeadID))
		if err != nil {
			http.Error(w, `{"error":"lead_id inválido"}`, http.StatusBadRequest)
			return
		}
		a.LeadID = &id
	}
	if err := repo.CreateAppointment(r.Context(), h.DB, &a); err != nil {
		log.Printf("[agenda] criar agendamento: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix("appointments:")
		h.Cache.DeletePrefix("dashboard:")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(a)
}

type patchAppointmentRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func (h *Handler) PatchAppointment(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error":"id inválido"}`, http.StatusBadRequest)
		return
	}
	var req patchAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if req.Status != nil && !repo.ValidStatus(*req.Status) {
		http.Error(w, `{"error":"status inválido"}`, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateAppointment(r.Context(), h.DB, id, req.Status, req.Notes); err != nil {
		log.Printf("[agenda] atualizar agendamento %s: %v", id, err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix("appointments:")
		h.Cache.DeletePrefix("dashboard:")
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
}
