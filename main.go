package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agendafacil/backend/internal/api"
	"github.com/agendafacil/backend/internal/auth"
	"github.com/agendafacil/backend/internal/cache"
	"github.com/agendafacil/backend/internal/config"
	"github.com/agendafacil/backend/internal/dispatch"
	"github.com/agendafacil/backend/internal/middleware"
	"github.com/agendafacil/backend/internal/migrate"
	"github.com/agendafacil/backend/internal/relay"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	var pool *pgxpool.Pool
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("config postgres: %v", err)
		}
		if cfg.DBMaxConns > 0 {
			poolConfig.MaxConns = int32(cfg.DBMaxConns)
		}
		if cfg.DBMinConns > 0 {
			poolConfig.MinConns = int32(cfg.DBMinConns)
		}
		if cfg.DBMaxConnLifetime > 0 {
			poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
		}
		pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			log.Fatalf("conexão postgres: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(context.Background()); err != nil {
			log.Fatalf("ping postgres: %v", err)
		}

		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			log.Fatalf("conexão gorm: %v", err)
		}
		if err := migrate.Run(context.Background(), db, "migrations"); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no database"}`))
			return
		}
		if err := pool.Ping(context.Background()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	webhook := relay.NewClient(relay.Config{
		URL:  cfg.WebhookURL,
		User: cfg.WebhookUser,
		Pass: cfg.WebhookPass,
	})
	if cfg.WebhookURL == "" {
		log.Printf("[relay] CONFIRMATION_WEBHOOK_URL vazio: envio de confirmações desativado")
	}
	dispatcher := dispatch.New(
		&api.RelaySender{Webhook: webhook},
		&api.GormConfirmationStore{DB: db},
	)
	h := &api.Handler{
		Pool:       pool,
		DB:         db,
		Cfg:        cfg,
		Cache:      cache.New(30 * time.Second),
		Webhook:    webhook,
		Dispatcher: dispatcher,
	}

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/confirmations/relay", h.RelayConfirmation).Methods(http.MethodPost)
	protected.HandleFunc("/confirmations/send", h.SendConfirmations).Methods(http.MethodPost)
	protected.HandleFunc("/confirmations/progress", h.ConfirmationProgress).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.ListAppointments).Methods(http.MethodGet)
	protected.HandleFunc("/appointments", h.CreateAppointment).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/pending-confirmation", h.ListPendingConfirmation).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{id}", h.PatchAppointment).Methods(http.MethodPatch)
	protected.HandleFunc("/leads", h.ListLeads).Methods(http.MethodGet)
	protected.HandleFunc("/leads", h.CreateLead).Methods(http.MethodPost)
	protected.HandleFunc("/leads/{id}", h.PatchLead).Methods(http.MethodPatch)
	protected.HandleFunc("/services", h.ListServices).Methods(http.MethodGet)
	protected.HandleFunc("/services", h.CreateService).Methods(http.MethodPost)
	protected.HandleFunc("/services/{id}", h.PatchService).Methods(http.MethodPatch)
	protected.HandleFunc("/services/{id}", h.DeleteService).Methods(http.MethodDelete)
	protected.HandleFunc("/professionals", h.ListProfessionals).Methods(http.MethodGet)
	protected.HandleFunc("/ai-config", h.GetAIConfig).Methods(http.MethodGet)
	protected.Handle("/ai-config", middleware.RequireRole(auth.RoleAdmin)(http.HandlerFunc(h.PutAIConfig))).Methods(http.MethodPut)
	protected.HandleFunc("/dashboard/summary", h.DashboardSummary).Methods(http.MethodGet)

	chain := middleware.Recover(middleware.RequestID(middleware.Timeout(cfg.RequestTimeoutSec)(middleware.CORS(cfg.CORSOrigins)(middleware.Gzip(r)))))

	// WriteTimeout precisa acomodar um lote de confirmações, que responde só
	// quando o último item termina.
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		log.Printf("backend listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("backend stopped")
}
