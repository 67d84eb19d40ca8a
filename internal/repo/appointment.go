package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPendente   = "pendente"
	StatusConfirmado = "confirmado"
	StatusRisco      = "risco"
	StatusCancelado  = "cancelado"
	StatusAtendido   = "atendido"
)

// ValidStatus reports whether s is one of the appointment statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPendente, StatusConfirmado, StatusRisco, StatusCancelado, StatusAtendido:
		return true
	}
	return false
}

// Appointment is an agenda appointment with the denormalized display fields the
// panel shows. ScheduledAt is stored as text ("2006-01-02T15:04:05Z"); the Z is
// a lie (the value is clinic-local time), so it is only ever read textually.
type Appointment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LeadID             *uuid.UUID `gorm:"type:uuid" json:"lead_id,omitempty"`
	ScheduledAt        string     `gorm:"not null" json:"scheduled_at"`
	Status             string     `gorm:"not null;default:pendente" json:"status"`
	ConfirmacaoEnviada bool       `gorm:"not null;default:false" json:"confirmacao_enviada"`
	PatientName        string     `json:"patient_name"`
	PhoneNumber        *string    `json:"phone_number,omitempty"`
	ServiceName        *string    `json:"service_name,omitempty"`
	ProfessionalName   *string    `json:"professional_name,omitempty"`
	Price              *float64   `json:"price,omitempty"`
	Duracao            *int       `json:"duracao,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Appointment) TableName() string { return "appointments" }

// ListAppointmentsByDate returns the appointments of one calendar day, matched
// textually on the scheduled_at prefix (date is "2006-01-02").
func ListAppointmentsByDate(ctx context.Context, db *gorm.DB, date string) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).
		Where("scheduled_at LIKE ?", date+"%").
		Order("scheduled_at").
		Find(&list).Error
	return list, err
}

// ListAppointmentsBetweenDates returns appointments with date prefix in
// [from, to] (both "2006-01-02", inclusive), for the week view.
func ListAppointmentsBetweenDates(ctx context.Context, db *gorm.DB, from, to string) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).
		Where("substr(scheduled_at, 1, 10) BETWEEN ? AND ?", from, to).
		Order("scheduled_at").
		Find(&list).Error
	return list, err
}

// ListPendingConfirmationByDate returns the appointments of the day that can
// still receive a confirmation message: flag not set and not cancelled.
func ListPendingConfirmationByDate(ctx context.Context, db *gorm.DB, date string) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).
		Where("scheduled_at LIKE ? AND confirmacao_enviada = ? AND status <> ?", date+"%", false, StatusCancelado).
		Order("scheduled_at").
		Find(&list).Error
	return list, err
}

// AppointmentConfirmationRow carries the fields needed to build one
// confirmation request, with the lead phone for fallback.
type AppointmentConfirmationRow struct {
	ID                 uuid.UUID
	ScheduledAt        string
	Status             string
	ConfirmacaoEnviada bool
	PatientName        string
	PhoneNumber        *string
	ServiceName        *string
	LeadPhone          string
}

// AppointmentsForConfirmation loads the selected appointments joined with the
// originating lead's phone. The result preserves the order of ids; unknown ids
// are silently absent.
func AppointmentsForConfirmation(ctx context.Context, db *gorm.DB, ids []uuid.UUID) ([]AppointmentConfirmationRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []AppointmentConfirmationRow
	err := db.WithContext(ctx).Raw(`
		SELECT a.id, a.scheduled_at, a.status, a.confirmacao_enviada, a.patient_name, a.phone_number, a.service_name,
		       COALESCE(l.telefone, '') AS lead_phone
		FROM appointments a
		LEFT JOIN leads l ON l.id = a.lead_id
		WHERE a.id IN ?
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]AppointmentConfirmationRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]AppointmentConfirmationRow, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkConfirmationSent flips confirmacao_enviada to true for one appointment.
// Writing true again is a no-op, so the per-item write is idempotent.
func MarkConfirmationSent(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).
		Model(&Appointment{}).
		Where("id = ?", id).
		Update("confirmacao_enviada", true).Error
}

func CreateAppointment(ctx context.Context, db *gorm.DB, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusPendente
	}
	return db.WithContext(ctx).Create(a).Error
}

func AppointmentByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAppointment applies a partial update (status and/or notes).
func UpdateAppointment(ctx context.Context, db *gorm.DB, id uuid.UUID, status *string, notes *string) error {
	updates := map[string]interface{}{}
	if status != nil {
		updates["status"] = *status
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&Appointment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
