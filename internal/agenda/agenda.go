package agenda

import (
	"github.com/agendafacil/backend/internal/repo"
)

// ExtractDate returns the "2006-01-02" prefix of a stored scheduled_at string.
// The stored value carries a UTC marker that does not reflect the real offset,
// so the date must come out of the text as written, never from time.Parse.
func ExtractDate(scheduledAt string) string {
	if len(scheduledAt) < 10 {
		return ""
	}
	return scheduledAt[:10]
}

// ExtractTime returns the "15:04" portion of a stored scheduled_at string
// ("2006-01-02T15:04:05..."), or "" when the text is too short.
func ExtractTime(scheduledAt string) string {
	if len(scheduledAt) < 16 || scheduledAt[10] != 'T' {
		return ""
	}
	return scheduledAt[11:16]
}

// Buckets groups one day's appointments by status, with the confirmation-sent
// split the panel needs to decide what is selectable.
type Buckets struct {
	Pendentes   []repo.Appointment `json:"pendentes"`
	Confirmados []repo.Appointment `json:"confirmados"`
	Risco       []repo.Appointment `json:"risco"`
	Cancelados  []repo.Appointment `json:"cancelados"`
	Atendidos   []repo.Appointment `json:"atendidos"`
	// AguardandoEnvio are the appointments still eligible for a confirmation
	// message: flag unset and not cancelled.
	AguardandoEnvio []repo.Appointment `json:"aguardando_envio"`
}

// Bucket splits appointments by status and derives the selectable set.
func Bucket(appts []repo.Appointment) Buckets {
	var b Buckets
	for _, a := range appts {
		switch a.Status {
		case repo.StatusConfirmado:
			b.Confirmados = append(b.Confirmados, a)
		case repo.StatusRisco:
			b.Risco = append(b.Risco, a)
		case repo.StatusCancelado:
			b.Cancelados = append(b.Cancelados, a)
		case repo.StatusAtendido:
			b.Atendidos = append(b.Atendidos, a)
		default:
			b.Pendentes = append(b.Pendentes, a)
		}
		if Selectable(a) {
			b.AguardandoEnvio = append(b.AguardandoEnvio, a)
		}
	}
	return b
}

// Selectable reports whether an appointment can still receive a confirmation
// message in this batch.
func Selectable(a repo.Appointment) bool {
	return !a.ConfirmacaoEnviada && a.Status != repo.StatusCancelado
}

// GroupByDay indexes appointments by their textual date, preserving the input
// order inside each day. Used by the week view.
func GroupByDay(appts []repo.Appointment) map[string][]repo.Appointment {
	out := make(map[string][]repo.Appointment)
	for _, a := range appts {
		d := ExtractDate(a.ScheduledAt)
		if d == "" {
			continue
		}
		out[d] = append(out[d], a)
	}
	return out
}
