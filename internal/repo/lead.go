package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EtapaNovo        = "novo"
	EtapaContato     = "em_contato"
	EtapaQualificado = "qualificado"
	EtapaAgendado    = "agendado"
	EtapaPerdido     = "perdido"
)

func ValidEtapa(s string) bool {
	switch s {
	case EtapaNovo, EtapaContato, EtapaQualificado, EtapaAgendado, EtapaPerdido:
		return true
	}
	return false
}

// Lead is a prospective or existing patient contact, qualified through the
// kanban stages above.
type Lead struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nome      string    `gorm:"not null" json:"nome"`
	Telefone  *string   `json:"telefone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Etapa     string    `gorm:"not null;default:novo" json:"etapa"`
	Origem    *string   `json:"origem,omitempty"`
	Notas     *string   `json:"notas,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

func ListLeads(ctx context.Context, db *gorm.DB) ([]Lead, error) {
	var list []Lead
	err := db.WithContext(ctx).Order("created_at DESC").Find(&list).Error
	return list, err
}

func CreateLead(ctx context.Context, db *gorm.DB, l *Lead) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Etapa == "" {
		l.Etapa = EtapaNovo
	}
	return db.WithContext(ctx).Create(l).Error
}

func UpdateLeadEtapa(ctx context.Context, db *gorm.DB, id uuid.UUID, etapa string) error {
	return db.WithContext(ctx).
		Model(&Lead{}).
		Where("id = ?", id).
		Update("etapa", etapa).Error
}
