package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/agendafacil/backend/internal/repo"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ListLeads returns all leads grouped by kanban stage.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	list, err := repo.ListLeads(r.Context(), h.DB)
	if err != nil {
		log.Printf("[leads] listar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	etapas := make(map[string][]repo.Lead)
	for _, l := range list {
		etapas[l.Etapa] = append(etapas[l.Etapa], l)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"leads": list, "etapas": etapas})
}

type createLeadRequest struct {
	Nome     string  `json:"nome"`
	Telefone *string `json:"telefone"`
	Email    *string `json:"email"`
	Etapa    string  `json:"etapa"`
	Origem   *string `json:"origem"`
	Notas    *string `json:"notas"`
}

func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	req.Nome = strings.TrimSpace(req.Nome)
	if req.Nome == "" {
		http.Error(w, `{"error":"nome obrigatório"}`, http.StatusBadRequest)
		return
	}
	if req.Etapa != "" && !repo.ValidEtapa(req.Etapa) {
		http.Error(w, `{"error":"etapa inválida"}`, http.StatusBadRequest)
		return
	}
	l := repo.Lead{
		Nome:     req.Nome,
		Telefone: req.Telefone,
		Email:    req.Email,
		Etapa:    req.Etapa,
		Origem:   req.Origem,
		Notas:    req.Notas,
	}
	if err := repo.CreateLead(r.Context(), h.DB, &l); err != nil {
		log.Printf("[leads] criar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(l)
}

type patchLeadRequest struct {
	Etapa string `json:"etapa"`
}

// PatchLead moves a lead to another kanban stage.
func (h *Handler) PatchLead(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error":"id inválido"}`, http.StatusBadRequest)
		return
	}
	var req patchLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if !repo.ValidEtapa(req.Etapa) {
		http.Error(w, `{"error":"etapa inválida"}`, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateLeadEtapa(r.Context(), h.DB, id, req.Etapa); err != nil {
		log.Printf("[leads] mover %s: %v", id, err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix("dashboard:")
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
}
