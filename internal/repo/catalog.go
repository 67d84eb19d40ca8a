package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is an entry of the clinic's service catalog.
type Service struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nome           string    `gorm:"not null" json:"nome"`
	Descricao      *string   `json:"descricao,omitempty"`
	Preco          *float64  `json:"preco,omitempty"`
	DuracaoMinutos int       `gorm:"default:30" json:"duracao_minutos"`
	Ativo          bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Service) TableName() string { return "services" }

func ListServices(ctx context.Context, db *gorm.DB) ([]Service, error) {
	var list []Service
	err := db.WithContext(ctx).Order("nome").Find(&list).Error
	return list, err
}

func CreateService(ctx context.Context, db *gorm.DB, s *Service) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return db.WithContext(ctx).Create(s).Error
}

// UpdateService applies a partial update from the given column map.
func UpdateService(ctx context.Context, db *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&Service{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func DeleteService(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&Service{}).Error
}

// Professional is a clinic professional shown on the scheduling forms.
type Professional struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nome          string    `gorm:"not null" json:"nome"`
	Especialidade *string   `json:"especialidade,omitempty"`
	Ativo         bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Professional) TableName() string { return "professionals" }

func ListProfessionals(ctx context.Context, db *gorm.DB) ([]Professional, error) {
	var list []Professional
	err := db.WithContext(ctx).Where("ativo = ?", true).Order("nome").Find(&list).Error
	return list, err
}
