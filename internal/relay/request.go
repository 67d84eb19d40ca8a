package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPatientName = "Paciente"
	DefaultServiceName = "Consulta"
)

// Issue is one field-level validation problem, returned to the caller on 400.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Confirmation is the canonical record a confirmation request normalizes into.
// The two accepted wire shapes (flat and nested with Portuguese/English field
// variants) never leave this package.
type Confirmation struct {
	AppointmentID    uuid.UUID
	Phone            string
	PatientName      string
	ScheduledAt      string
	ServiceName      string
	ProfessionalName string
	Duracao          *int
	Price            *float64
	Notes            string
}

// nestedBody is the loose {agendamento: {...}} shape sent by the automation
// flows. Field names come in Portuguese or English; unknown fields are ignored.
type nestedBody struct {
	ID               string   `json:"id"`
	AppointmentID    string   `json:"appointmentId"`
	Phone            string   `json:"phone"`
	Telefone         string   `json:"telefone"`
	PatientName      string   `json:"patientName"`
	Nome             string   `json:"nome"`
	ScheduledAt      string   `json:"scheduledAt"`
	DataAgendamento  string   `json:"data_agendamento"`
	ServiceName      string   `json:"serviceName"`
	Servico          string   `json:"servico"`
	ProfessionalName string   `json:"professionalName"`
	Profissional     string   `json:"profissional"`
	Duracao          *int     `json:"duracao"`
	Price            *float64 `json:"price"`
	Preco            *float64 `json:"preco"`
	Notes            string   `json:"notes"`
	Observacoes      string   `json:"observacoes"`
}

type requestBody struct {
	Agendamento *nestedBody `json:"agendamento"`
	// Flat minimal shape sent by the panel.
	AppointmentID string `json:"appointmentId"`
	Phone         string `json:"phone"`
	PatientName   string `json:"patientName"`
	ScheduledAt   string `json:"scheduledAt"`
	ServiceName   string `json:"serviceName"`
}

// ParseRequest decodes one of the two accepted shapes and normalizes it.
// A non-nil error means the body is not JSON at all; a non-empty issue list
// means the shape decoded but failed validation.
func ParseRequest(r io.Reader) (Confirmation, []Issue, error) {
	var body requestBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return Confirmation{}, nil, fmt.Errorf("decode confirmation request: %w", err)
	}
	if body.Agendamento != nil {
		return normalizeNested(body.Agendamento)
	}
	return normalizeFlat(&body)
}

func normalizeFlat(b *requestBody) (Confirmation, []Issue, error) {
	var issues []Issue
	id, err := uuid.Parse(strings.TrimSpace(b.AppointmentID))
	if err != nil {
		issues = append(issues, Issue{Field: "appointmentId", Message: "uuid inválido"})
	}
	phone := strings.TrimSpace(b.Phone)
	if len(phone) < 10 || len(phone) > 20 {
		issues = append(issues, Issue{Field: "phone", Message: "telefone deve ter entre 10 e 20 caracteres"})
	}
	name := strings.TrimSpace(b.PatientName)
	if name == "" || len(name) > 100 {
		issues = append(issues, Issue{Field: "patientName", Message: "nome deve ter entre 1 e 100 caracteres"})
	}
	service := strings.TrimSpace(b.ServiceName)
	if service == "" || len(service) > 100 {
		issues = append(issues, Issue{Field: "serviceName", Message: "serviço deve ter entre 1 e 100 caracteres"})
	}
	if strings.TrimSpace(b.ScheduledAt) == "" {
		issues = append(issues, Issue{Field: "scheduledAt", Message: "obrigatório"})
	}
	if len(issues) > 0 {
		return Confirmation{}, issues, nil
	}
	return Confirmation{
		AppointmentID: id,
		Phone:         phone,
		PatientName:   name,
		ScheduledAt:   strings.TrimSpace(b.ScheduledAt),
		ServiceName:   service,
	}, nil, nil
}

func normalizeNested(n *nestedBody) (Confirmation, []Issue, error) {
	var issues []Issue
	rawID := firstNonEmpty(n.ID, n.AppointmentID)
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		issues = append(issues, Issue{Field: "agendamento.id", Message: "uuid inválido"})
	}
	phone := strings.TrimSpace(firstNonEmpty(n.Phone, n.Telefone))
	if len(phone) < 10 || len(phone) > 20 {
		issues = append(issues, Issue{Field: "agendamento.phone", Message: "telefone deve ter entre 10 e 20 caracteres"})
	}
	if len(issues) > 0 {
		return Confirmation{}, issues, nil
	}
	c := Confirmation{
		AppointmentID:    id,
		Phone:            phone,
		PatientName:      strings.TrimSpace(firstNonEmpty(n.PatientName, n.Nome)),
		ScheduledAt:      strings.TrimSpace(firstNonEmpty(n.ScheduledAt, n.DataAgendamento)),
		ServiceName:      strings.TrimSpace(firstNonEmpty(n.ServiceName, n.Servico)),
		ProfessionalName: strings.TrimSpace(firstNonEmpty(n.ProfessionalName, n.Profissional)),
		Duracao:          n.Duracao,
		Notes:            strings.TrimSpace(firstNonEmpty(n.Notes, n.Observacoes)),
	}
	if n.Price != nil {
		c.Price = n.Price
	} else if n.Preco != nil {
		c.Price = n.Preco
	}
	if c.PatientName == "" {
		c.PatientName = DefaultPatientName
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	return c, nil, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// WebhookPayload builds the outbound body for the automation webhook. Keys are
// duplicated in camelCase and snake_case because downstream flows were written
// against both spellings at different times.
func WebhookPayload(c Confirmation, userID string) map[string]interface{} {
	p := map[string]interface{}{
		"appointmentId":     c.AppointmentID.String(),
		"appointment_id":    c.AppointmentID.String(),
		"phone":             c.Phone,
		"telefone":          c.Phone,
		"patientName":       c.PatientName,
		"patient_name":      c.PatientName,
		"nome":              c.PatientName,
		"scheduledAt":       c.ScheduledAt,
		"scheduled_at":      c.ScheduledAt,
		"serviceName":       c.ServiceName,
		"service_name":      c.ServiceName,
		"servico":           c.ServiceName,
		"professionalName":  c.ProfessionalName,
		"professional_name": c.ProfessionalName,
		"userId":            userID,
		"user_id":           userID,
		"source":            "painel",
	}
	if c.Duracao != nil {
		p["duracao"] = *c.Duracao
	}
	if c.Price != nil {
		p["price"] = *c.Price
		p["preco"] = *c.Price
	}
	if c.Notes != "" {
		p["notes"] = c.Notes
		p["observacoes"] = c.Notes
	}
	return p
}
