package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	DatabaseURL       string
	JWTSecret         []byte
	CORSOrigins       []string
	RequestTimeoutSec int
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration
	// Webhook de confirmação (n8n). Credenciais Basic ficam só no servidor,
	// nunca vão para o cliente.
	WebhookURL  string
	WebhookUser string
	WebhookPass string
	// Fuso da clínica, usado para resolver "hoje" no dashboard.
	ClinicTZ string
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}
	cors := os.Getenv("CORS_ORIGINS")
	if cors == "" {
		cors = "http://localhost:5173"
	}
	var origins []string
	for _, o := range strings.Split(cors, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	clinicTZ := os.Getenv("CLINIC_TZ")
	if clinicTZ == "" {
		clinicTZ = "America/Sao_Paulo"
	}
	return &Config{
		Port:              port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         []byte(jwtSecret),
		CORSOrigins:       origins,
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 30),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 0),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 0),
		DBMaxConnLifetime: time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MIN", 0)) * time.Minute,
		WebhookURL:        os.Getenv("CONFIRMATION_WEBHOOK_URL"),
		WebhookUser:       os.Getenv("WEBHOOK_BASIC_USER"),
		WebhookPass:       os.Getenv("WEBHOOK_BASIC_PASS"),
		ClinicTZ:          clinicTZ,
	}
}

func getEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
