package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AIConfig holds the configuration of the clinic's AI agent (single row).
type AIConfig struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NomeAgente  string    `gorm:"not null;default:Assistente" json:"nome_agente"`
	Prompt      string    `json:"prompt"`
	Modelo      string    `gorm:"default:gpt-4o-mini" json:"modelo"`
	Temperatura float64   `gorm:"default:0.7" json:"temperatura"`
	Ativo       bool      `gorm:"not null;default:true" json:"ativo"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (AIConfig) TableName() string { return "ai_configs" }

// GetAIConfig returns the agent configuration, or a default when none exists yet.
func GetAIConfig(ctx context.Context, db *gorm.DB) (*AIConfig, error) {
	var c AIConfig
	err := db.WithContext(ctx).Order("updated_at DESC").First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &AIConfig{NomeAgente: "Assistente", Modelo: "gpt-4o-mini", Temperatura: 0.7, Ativo: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertAIConfig creates or replaces the agent configuration row.
func UpsertAIConfig(ctx context.Context, db *gorm.DB, c *AIConfig) error {
	if c.ID == uuid.Nil {
		var existing AIConfig
		err := db.WithContext(ctx).Order("updated_at DESC").First(&existing).Error
		switch {
		case err == nil:
			c.ID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.ID = uuid.New()
		default:
			return err
		}
	}
	return db.WithContext(ctx).Save(c).Error
}
