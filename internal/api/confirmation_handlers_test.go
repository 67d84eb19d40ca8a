package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agendafacil/backend/internal/auth"
	"github.com/agendafacil/backend/internal/cache"
	"github.com/agendafacil/backend/internal/dispatch"
	"github.com/agendafacil/backend/internal/middleware"
	"github.com/agendafacil/backend/internal/relay"
	"github.com/agendafacil/backend/internal/repo"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testSecret = []byte("test-secret-with-at-least-32-chars!!")

func testToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.BuildJWT(testSecret, "user-1", auth.RoleAtendente, nil, time.Hour)
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}
	return tok
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("abrir sqlite: %v", err)
	}
	if err := db.AutoMigrate(&repo.Lead{}, &repo.Appointment{}); err != nil {
		t.Fatalf("migrar: %v", err)
	}
	return db
}

func relayHandler(h *Handler) http.Handler {
	return middleware.RequireAuth(testSecret, http.HandlerFunc(h.RelayConfirmation))
}

func postJSON(t *testing.T, handler http.Handler, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRelayConfirmation_NoToken(t *testing.T) {
	h := &Handler{Webhook: relay.NewClient(relay.Config{URL: "http://example.invalid"})}
	rec := postJSON(t, relayHandler(h), "/api/confirmations/relay", "", map[string]string{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperava 401", rec.Code)
	}
}

func TestRelayConfirmation_MissingPhone(t *testing.T) {
	h := &Handler{Webhook: relay.NewClient(relay.Config{URL: "http://example.invalid"})}
	rec := postJSON(t, relayHandler(h), "/api/confirmations/relay", testToken(t), map[string]interface{}{
		"appointmentId": "b3a4f8a0-9c1d-4e2f-8a3b-1c2d3e4f5a6b",
		"patientName":   "Ana",
		"scheduledAt":   "2025-03-10T09:00:00Z",
		"serviceName":   "Consulta",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, esperava 400", rec.Code)
	}
	var resp struct {
		Issues []relay.Issue `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decodificar resposta: %v", err)
	}
	if len(resp.Issues) == 0 {
		t.Fatal("esperava issues de validação")
	}
	found := false
	for _, is := range resp.Issues {
		if is.Field == "phone" {
			found = true
		}
	}
	if !found {
		t.Fatalf("issue de phone ausente: %+v", resp.Issues)
	}
}

func TestRelayConfirmation_NestedForwardAndPassthrough(t *testing.T) {
	var got map[string]interface{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "n8n" || pass != "s3cret" {
			t.Errorf("basic auth errado: %q/%q", user, pass)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer upstream.Close()

	h := &Handler{Webhook: relay.NewClient(relay.Config{URL: upstream.URL, User: "n8n", Pass: "s3cret"})}
	rec := postJSON(t, relayHandler(h), "/api/confirmations/relay", testToken(t), map[string]interface{}{
		"agendamento": map[string]interface{}{
			"id":               "b3a4f8a0-9c1d-4e2f-8a3b-1c2d3e4f5a6b",
			"nome":             "Maria",
			"telefone":         "5511999990000",
			"data_agendamento": "2025-03-10T09:00:00Z",
			"servico":          "Limpeza",
		},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, esperava 202 relido do upstream", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "queued") {
		t.Fatalf("corpo não repassado: %q", rec.Body.String())
	}
	if got["patientName"] != "Maria" || got["telefone"] != "5511999990000" || got["servico"] != "Limpeza" {
		t.Fatalf("payload normalizado errado: %+v", got)
	}
	if got["userId"] != "user-1" {
		t.Fatalf("userId = %v", got["userId"])
	}
}

func TestRelayConfirmation_WebhookNotConfigured(t *testing.T) {
	h := &Handler{Webhook: relay.NewClient(relay.Config{})}
	rec := postJSON(t, relayHandler(h), "/api/confirmations/relay", testToken(t), map[string]interface{}{
		"appointmentId": "b3a4f8a0-9c1d-4e2f-8a3b-1c2d3e4f5a6b",
		"phone":         "5511999990000",
		"patientName":   "Ana",
		"scheduledAt":   "2025-03-10T09:00:00Z",
		"serviceName":   "Consulta",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, esperava 500", rec.Code)
	}
}

func TestRelayConfirmation_UpstreamFailurePassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("workflow pausado"))
	}))
	defer upstream.Close()

	h := &Handler{Webhook: relay.NewClient(relay.Config{URL: upstream.URL})}
	rec := postJSON(t, relayHandler(h), "/api/confirmations/relay", testToken(t), map[string]interface{}{
		"appointmentId": "b3a4f8a0-9c1d-4e2f-8a3b-1c2d3e4f5a6b",
		"phone":         "5511999990000",
		"patientName":   "Ana",
		"scheduledAt":   "2025-03-10T09:00:00Z",
		"serviceName":   "Consulta",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, esperava 503 repassado", rec.Code)
	}
	if rec.Body.String() != "workflow pausado" {
		t.Fatalf("corpo = %q", rec.Body.String())
	}
}

func TestSendConfirmations_BatchWithOneFailure(t *testing.T) {
	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("erro no workflow"))
			return
		}
		_, _ = w.Write([]byte("Mensagem enviada"))
	}))
	defer upstream.Close()

	db := testDB(t)
	ctx := context.Background()
	phones := []string{"5511911110001", "5511911110002", "5511911110003"}
	ids := make([]string, 0, 3)
	uuids := make([]uuid.UUID, 0, 3)
	for i, p := range phones {
		phone := p
		a := repo.Appointment{
			ScheduledAt: fmt.Sprintf("2025-03-10T0%d:00:00Z", 9+i),
			PatientName: fmt.Sprintf("Paciente %d", i+1),
			PhoneNumber: &phone,
		}
		if err := repo.CreateAppointment(ctx, db, &a); err != nil {
			t.Fatalf("criar: %v", err)
		}
		ids = append(ids, a.ID.String())
		uuids = append(uuids, a.ID)
	}

	webhook := relay.NewClient(relay.Config{URL: upstream.URL})
	d := dispatch.New(&RelaySender{Webhook: webhook}, &GormConfirmationStore{DB: db})
	d.SetPace(0)
	d.SetClearDelay(time.Minute)
	h := &Handler{DB: db, Cache: cache.New(time.Minute), Webhook: webhook, Dispatcher: d}

	handler := middleware.RequireAuth(testSecret, http.HandlerFunc(h.SendConfirmations))
	rec := postJSON(t, handler, "/api/confirmations/send", testToken(t), map[string]interface{}{
		"appointment_ids": ids,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d corpo=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Total   int    `json:"total"`
		Sent    int    `json:"sent"`
		Errors  int    `json:"errors"`
		Partial bool   `json:"partial"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decodificar resposta: %v", err)
	}
	if resp.Total != 3 || resp.Sent != 2 || resp.Errors != 1 || !resp.Partial {
		t.Fatalf("resumo inesperado: %+v", resp)
	}
	if resp.Message != "2 enviado(s), 1 erro(s)" {
		t.Fatalf("mensagem = %q", resp.Message)
	}

	var flagged []repo.Appointment
	if err := db.Where("confirmacao_enviada = ?", true).Order("scheduled_at").Find(&flagged).Error; err != nil {
		t.Fatalf("recarregar: %v", err)
	}
	if len(flagged) != 2 {
		t.Fatalf("esperava 2 flags persistidas, veio %d", len(flagged))
	}
	if flagged[0].ID != uuids[0] || flagged[1].ID != uuids[2] {
		t.Fatal("flags persistidas nos itens errados")
	}
}

func TestSendConfirmations_BadSelection(t *testing.T) {
	db := testDB(t)
	d := dispatch.New(&RelaySender{}, &GormConfirmationStore{DB: db})
	h := &Handler{DB: db, Dispatcher: d}
	handler := middleware.RequireAuth(testSecret, http.HandlerFunc(h.SendConfirmations))

	rec := postJSON(t, handler, "/api/confirmations/send", testToken(t), map[string]interface{}{
		"appointment_ids": []string{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("seleção vazia: status = %d", rec.Code)
	}

	rec = postJSON(t, handler, "/api/confirmations/send", testToken(t), map[string]interface{}{
		"appointment_ids": []string{"não-é-uuid"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("uuid inválido: status = %d", rec.Code)
	}
}

func TestConfirmationProgress_EmptySnapshot(t *testing.T) {
	d := dispatch.New(&RelaySender{}, &GormConfirmationStore{})
	h := &Handler{Dispatcher: d}
	req := httptest.NewRequest(http.MethodGet, "/api/confirmations/progress", nil)
	rec := httptest.NewRecorder()
	h.ConfirmationProgress(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var p dispatch.Progress
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decodificar: %v", err)
	}
	if p.Active || p.Total != 0 {
		t.Fatalf("snapshot inicial inesperado: %+v", p)
	}
}
