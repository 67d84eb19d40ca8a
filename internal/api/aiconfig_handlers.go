package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/agendafacil/backend/internal/repo"
)

func (h *Handler) GetAIConfig(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	c, err := repo.GetAIConfig(r.Context(), h.DB)
	if err != nil {
		log.Printf("[ai-config] carregar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c)
}

type aiConfigRequest struct {
	NomeAgente  string   `json:"nome_agente"`
	Prompt      string   `json:"prompt"`
	Modelo      string   `json:"modelo"`
	Temperatura *float64 `json:"temperatura"`
	Ativo       *bool    `json:"ativo"`
}

// PutAIConfig replaces the agent configuration. Admin only (enforced at the
// route level).
func (h *Handler) PutAIConfig(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	var req aiConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	req.NomeAgente = strings.TrimSpace(req.NomeAgente)
	if req.NomeAgente == "" {
		http.Error(w, `{"error":"nome_agente obrigatório"}`, http.StatusBadRequest)
		return
	}
	if req.Temperatura != nil && (*req.Temperatura < 0 || *req.Temperatura > 2) {
		http.Error(w, `{"error":"temperatura deve estar entre 0 e 2"}`, http.StatusBadRequest)
		return
	}
	c := repo.AIConfig{
		NomeAgente:  req.NomeAgente,
		Prompt:      req.Prompt,
		Modelo:      req.Modelo,
		Temperatura: 0.7,
		Ativo:       true,
	}
	if c.Modelo == "" {
		c.Modelo = "gpt-4o-mini"
	}
	if req.Temperatura != nil {
		c.Temperatura = *req.Temperatura
	}
	if req.Ativo != nil {
		c.Ativo = *req.Ativo
	}
	if err := repo.UpsertAIConfig(r.Context(), h.DB, &c); err != nil {
		log.Printf("[ai-config] salvar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c)
}
