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

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	list, err := repo.ListServices(r.Context(), h.DB)
	if err != nil {
		log.Printf("[services] listar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"services": list})
}

type serviceRequest struct {
	Nome           *string  `json:"nome"`
	Descricao      *string  `json:"descricao"`
	Preco          *float64 `json:"preco"`
	DuracaoMinutos *int     `json:"duracao_minutos"`
	Ativo          *bool    `json:"ativo"`
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	if req.Nome == nil || strings.TrimSpace(*req.Nome) == "" {
		http.Error(w, `{"error":"nome obrigatório"}`, http.StatusBadRequest)
		return
	}
	s := repo.Service{
		Nome:      strings.TrimSpace(*req.Nome),
		Descricao: req.Descricao,
		Preco:     req.Preco,
		Ativo:     true,
	}
	if req.DuracaoMinutos != nil {
		s.DuracaoMinutos = *req.DuracaoMinutos
	}
	if req.Ativo != nil {
		s.Ativo = *req.Ativo
	}
	if err := repo.CreateService(r.Context(), h.DB, &s); err != nil {
		log.Printf("[services] criar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(s)
}

func (h *Handler) PatchService(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error":"id inválido"}`, http.StatusBadRequest)
		return
	}
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	updates := map[string]interface{}{}
	if req.Nome != nil {
		if strings.TrimSpace(*req.Nome) == "" {
			http.Error(w, `{"error":"nome não pode ser vazio"}`, http.StatusBadRequest)
			return
		}
		updates["nome"] = strings.TrimSpace(*req.Nome)
	}
	if req.Descricao != nil {
		updates["descricao"] = *req.Descricao
	}
	if req.Preco != nil {
		updates["preco"] = *req.Preco
	}
	if req.DuracaoMinutos != nil {
		updates["duracao_minutos"] = *req.DuracaoMinutos
	}
	if req.Ativo != nil {
		updates["ativo"] = *req.Ativo
	}
	if err := repo.UpdateService(r.Context(), h.DB, id, updates); err != nil {
		log.Printf("[services] atualizar %s: %v", id, err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error":"id inválido"}`, http.StatusBadRequest)
		return
	}
	if err := repo.DeleteService(r.Context(), h.DB, id); err != nil {
		log.Printf("[services] remover %s: %v", id, err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		http.Error(w, `{"error":"no database"}`, http.StatusServiceUnavailable)
		return
	}
	list, err := repo.ListProfessionals(r.Context(), h.DB)
	if err != nil {
		log.Printf("[professionals] listar: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"professionals": list})
}
