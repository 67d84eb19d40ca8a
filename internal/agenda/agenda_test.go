package agenda

import (
	"testing"

	"github.com/agendafacil/backend/internal/repo"
	"github.com/google/uuid"
)

func TestExtractDateAndTime(t *testing.T) {
	// O sufixo Z não representa UTC de verdade; a leitura é textual.
	s := "2025-03-14T09:30:00Z"
	if got := ExtractDate(s); got != "2025-03-14" {
		t.Errorf("ExtractDate: got %q", got)
	}
	if got := ExtractTime(s); got != "09:30" {
		t.Errorf("ExtractTime: got %q", got)
	}
}

func TestExtractDate_Short(t *testing.T) {
	if got := ExtractDate("2025"); got != "" {
		t.Errorf("short input: got %q, want empty", got)
	}
	if got := ExtractTime("2025-03-14"); got != "" {
		t.Errorf("date-only input: got %q, want empty", got)
	}
}

func appt(status string, sent bool, at string) repo.Appointment {
	return repo.Appointment{ID: uuid.New(), Status: status, ConfirmacaoEnviada: sent, ScheduledAt: at}
}

func TestBucket(t *testing.T) {
	appts := []repo.Appointment{
		appt(repo.StatusPendente, false, "2025-03-14T09:00:00Z"),
		appt(repo.StatusConfirmado, true, "2025-03-14T10:00:00Z"),
		appt(repo.StatusCancelado, false, "2025-03-14T11:00:00Z"),
		appt(repo.StatusRisco, false, "2025-03-14T12:00:00Z"),
		appt(repo.StatusAtendido, true, "2025-03-14T13:00:00Z"),
	}
	b := Bucket(appts)
	if len(b.Pendentes) != 1 || len(b.Confirmados) != 1 || len(b.Cancelados) != 1 || len(b.Risco) != 1 || len(b.Atendidos) != 1 {
		t.Fatalf("bucket sizes: %+v", b)
	}
	// Selecionáveis: pendente e risco (sem flag, não cancelados)
	if len(b.AguardandoEnvio) != 2 {
		t.Fatalf("aguardando envio: got %d, want 2", len(b.AguardandoEnvio))
	}
}

func TestSelectable_ExcludesSentAndCancelled(t *testing.T) {
	if Selectable(appt(repo.StatusPendente, true, "")) {
		t.Error("already sent should not be selectable")
	}
	if Selectable(appt(repo.StatusCancelado, false, "")) {
		t.Error("cancelled should not be selectable")
	}
	if !Selectable(appt(repo.StatusConfirmado, false, "")) {
		t.Error("confirmed without flag should be selectable")
	}
}

func TestGroupByDay(t *testing.T) {
	appts := []repo.Appointment{
		appt(repo.StatusPendente, false, "2025-03-10T09:00:00Z"),
		appt(repo.StatusPendente, false, "2025-03-10T10:00:00Z"),
		appt(repo.StatusPendente, false, "2025-03-11T09:00:00Z"),
		appt(repo.StatusPendente, false, "bogus"),
	}
	g := GroupByDay(appts)
	if len(g) != 2 {
		t.Fatalf("days: got %d, want 2", len(g))
	}
	if len(g["2025-03-10"]) != 2 || len(g["2025-03-11"]) != 1 {
		t.Fatalf("group sizes: %+v", g)
	}
}
