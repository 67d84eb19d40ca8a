package api

import (
	"github.com/agendafacil/backend/internal/cache"
	"github.com/agendafacil/backend/internal/config"
	"github.com/agendafacil/backend/internal/dispatch"
	"github.com/agendafacil/backend/internal/relay"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

type Handler struct {
	Pool       *pgxpool.Pool
	DB         *gorm.DB
	Cfg        *config.Config
	Cache      *cache.TTL
	Webhook    *relay.Client
	Dispatcher *dispatch.Dispatcher
}
