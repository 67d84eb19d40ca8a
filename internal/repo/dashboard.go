package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardSummary holds the aggregate counters shown on the panel home.
type DashboardSummary struct {
	TotalLeads           int64 `json:"total_leads"`
	LeadsNovos           int64 `json:"leads_novos"`
	AgendamentosHoje     int64 `json:"agendamentos_hoje"`
	ConfirmadosHoje      int64 `json:"confirmados_hoje"`
	PendentesHoje        int64 `json:"pendentes_hoje"`
	ConfirmacoesEnviadas int64 `json:"confirmacoes_enviadas_hoje"`
}

// LoadDashboardSummary computes the panel counters for the given day
// (date is "2006-01-02"; appointments are matched on the scheduled_at prefix).
func LoadDashboardSummary(ctx context.Context, pool *pgxpool.Pool, date string) (*DashboardSummary, error) {
	var s DashboardSummary
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE etapa = 'novo')
		FROM leads
	`).Scan(&s.TotalLeads, &s.LeadsNovos)
	if err != nil {
		return nil, err
	}
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'confirmado'),
		       COUNT(*) FILTER (WHERE status = 'pendente'),
		       COUNT(*) FILTER (WHERE confirmacao_enviada)
		FROM appointments
		WHERE scheduled_at LIKE $1 || '%'
	`, date).Scan(&s.AgendamentosHoje, &s.ConfirmadosHoje, &s.PendentesHoje, &s.ConfirmacoesEnviadas)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
