package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/agendafacil/backend/internal/repo"
)

// DashboardSummary answers the panel counters for "today" in the clinic's
// timezone. Accepts ?date=YYYY-MM-DD to inspect another day.
func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	if h.Pool == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.today()
	} else if !dateRegex.MatchString(date) {
		http.Error(w, `{"error":"date deve ser YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	key := "dashboard:" + date
	if h.Cache != nil {
		if cached := h.Cache.Get(key); cached != nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(cached)
			return
		}
	}
	sum, err := repo.LoadDashboardSummary(r.Context(), h.Pool, date)
	if err != nil {
		log.Printf("[dashboard] resumo %s: %v", date, err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	buf, _ := json.Marshal(map[string]interface{}{"date": date, "summary": sum})
	if h.Cache != nil {
		h.Cache.Set(key, buf)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf)
}

func (h *Handler) today() string {
	tz := "America/Sao_Paulo"
	if h.Cfg != nil && h.Cfg.ClinicTZ != "" {
		tz = h.Cfg.ClinicTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc).Format("2006-01-02")
}
