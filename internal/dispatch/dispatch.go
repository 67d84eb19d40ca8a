package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrEmptySelection = errors.New("dispatch: nenhum agendamento selecionado")
	ErrBatchInFlight  = errors.New("dispatch: já existe um envio em andamento")
)

const (
	defaultSuccessText  = "Mensagem enviada"
	connectionErrorText = "Erro de conexão"
	// Pace between sends. Throttles the automation webhook; not configurable
	// by the caller.
	sendInterval = 300 * time.Millisecond
	// How long the final progress stays visible before being discarded.
	clearDelay = 5 * time.Second

	DefaultPatientName = "Paciente"
	DefaultServiceName = "Consulta"
)

// Appointment carries the cached fields a confirmation request is built from.
// Phone falls back to LeadPhone; names fall back to fixed defaults.
type Appointment struct {
	ID          uuid.UUID
	Phone       string
	LeadPhone   string
	PatientName string
	ServiceName string
	ScheduledAt string
}

// Request is the minimal per-item payload sent to the relay.
type Request struct {
	AppointmentID uuid.UUID
	Phone         string
	PatientName   string
	ScheduledAt   string
	ServiceName   string
}

// Sender delivers one confirmation request and reports the relay's HTTP status
// and raw response text. err is non-nil only for transport failures.
type Sender interface {
	SendConfirmation(ctx context.Context, req Request) (status int, body string, err error)
}

// Store persists the confirmation-sent flag for one appointment.
type Store interface {
	MarkConfirmationSent(ctx context.Context, id uuid.UUID) error
}

// Message is one entry of the ordered send log.
type Message struct {
	Phone   string `json:"phone"`
	Success bool   `json:"success"`
	Text    string `json:"message"`
}

// Progress is a snapshot of a running (or just finished) batch.
// Invariant: Sent+Errors <= Total, with equality only after the batch ends.
type Progress struct {
	Total        int       `json:"total"`
	Sent         int       `json:"sent"`
	Errors       int       `json:"errors"`
	CurrentPhone string    `json:"current_phone,omitempty"`
	Messages     []Message `json:"messages"`
	Active       bool      `json:"active"`
}

// Summary is the aggregate result of one batch.
type Summary struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Errors int `json:"errors"`
}

// Partial reports whether at least one item failed.
func (s Summary) Partial() bool { return s.Errors > 0 }

// Text is the one-line notification shown after the batch.
func (s Summary) Text() string {
	if s.Errors > 0 {
		return fmt.Sprintf("%d enviado(s), %d erro(s)", s.Sent, s.Errors)
	}
	return fmt.Sprintf("%d mensagem(ns) enviada(s)", s.Sent)
}

// Dispatcher sends confirmation requests strictly one at a time, never more
// than one in flight, pacing items with a token limiter. A single item failure
// never aborts the batch; every selected appointment is processed exactly once.
type Dispatcher struct {
	sender     Sender
	store      Store
	limiter    *rate.Limiter
	clearAfter time.Duration
	onProgress func(Progress)

	mu       sync.Mutex
	running  bool
	gen      int
	progress Progress
}

func New(sender Sender, store Store) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		store:      store,
		limiter:    rate.NewLimiter(rate.Every(sendInterval), 1),
		clearAfter: clearDelay,
	}
}

// SetOnProgress registers a hook invoked with a snapshot after every state
// change. Used by tests and by push-style progress consumers.
func (d *Dispatcher) SetOnProgress(fn func(Progress)) { d.onProgress = fn }

// SetPace overrides the interval between sends (0 disables pacing, for tests).
func (d *Dispatcher) SetPace(interval time.Duration) {
	d.limiter = rate.NewLimiter(rate.Every(interval), 1)
}

// SetClearDelay overrides how long the final progress stays visible.
func (d *Dispatcher) SetClearDelay(delay time.Duration) { d.clearAfter = delay }

// Run processes the batch sequentially and returns the aggregate summary.
// It fails fast with ErrEmptySelection on an empty batch (no sends happen) and
// with ErrBatchInFlight when another batch has not finished yet.
func (d *Dispatcher) Run(ctx context.Context, appts []Appointment) (Summary, error) {
	if len(appts) == 0 {
		return Summary{}, ErrEmptySelection
	}
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return Summary{}, ErrBatchInFlight
	}
	d.running = true
	d.gen++
	gen := d.gen
	d.progress = Progress{Total: len(appts), Active: true}
	d.mu.Unlock()
	d.notify()

	for _, a := range appts {
		req := buildRequest(a)
		if err := d.limiter.Wait(ctx); err != nil {
			d.update(func(p *Progress) {
				p.Errors++
				p.Messages = append(p.Messages, Message{Phone: req.Phone, Success: false, Text: connectionErrorText})
			})
			continue
		}
		d.update(func(p *Progress) { p.CurrentPhone = req.Phone })

		status, body, err := d.sender.SendConfirmation(ctx, req)
		switch {
		case err != nil:
			log.Printf("[confirmacao] envio falhou appointment=%s phone=%s: %v", a.ID, req.Phone, err)
			d.update(func(p *Progress) {
				p.Errors++
				p.Messages = append(p.Messages, Message{Phone: req.Phone, Success: false, Text: connectionErrorText})
			})
		case status >= 200 && status < 300:
			text := body
			if text == "" {
				text = defaultSuccessText
			}
			// Persist per item, not at the end of the batch: a crash mid-batch
			// leaves the already-sent flags correctly set.
			if err := d.store.MarkConfirmationSent(ctx, a.ID); err != nil {
				log.Printf("[confirmacao] flag não persistida appointment=%s: %v", a.ID, err)
			}
			d.update(func(p *Progress) {
				p.Sent++
				p.Messages = append(p.Messages, Message{Phone: req.Phone, Success: true, Text: text})
			})
		default:
			text := body
			if text == "" {
				text = fmt.Sprintf("Falha no envio (%d)", status)
			}
			log.Printf("[confirmacao] relay respondeu %d appointment=%s phone=%s", status, a.ID, req.Phone)
			d.update(func(p *Progress) {
				p.Errors++
				p.Messages = append(p.Messages, Message{Phone: req.Phone, Success: false, Text: text})
			})
		}
	}

	d.mu.Lock()
	d.progress.CurrentPhone = ""
	d.progress.Active = false
	summary := Summary{Total: d.progress.Total, Sent: d.progress.Sent, Errors: d.progress.Errors}
	d.running = false
	d.mu.Unlock()
	d.notify()

	// Keep the final numbers visible for a moment, then discard them unless a
	// newer batch already started.
	time.AfterFunc(d.clearAfter, func() { d.clear(gen) })
	return summary, nil
}

// Progress returns a copy of the current snapshot.
func (d *Dispatcher) Progress() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress.copy()
}

func (d *Dispatcher) update(fn func(*Progress)) {
	d.mu.Lock()
	fn(&d.progress)
	snap := d.progress.copy()
	d.mu.Unlock()
	if d.onProgress != nil {
		d.onProgress(snap)
	}
}

func (d *Dispatcher) notify() {
	if d.onProgress == nil {
		return
	}
	d.onProgress(d.Progress())
}

func (d *Dispatcher) clear(gen int) {
	d.mu.Lock()
	if d.running || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.progress = Progress{}
	d.mu.Unlock()
	d.notify()
}

func (p Progress) copy() Progress {
	out := p
	out.Messages = append([]Message(nil), p.Messages...)
	return out
}

func buildRequest(a Appointment) Request {
	phone := a.Phone
	if phone == "" {
		phone = a.LeadPhone
	}
	name := a.PatientName
	if name == "" {
		name = DefaultPatientName
	}
	service := a.ServiceName
	if service == "" {
		service = DefaultServiceName
	}
	return Request{
		AppointmentID: a.ID,
		Phone:         phone,
		PatientName:   name,
		ScheduledAt:   a.ScheduledAt,
		ServiceName:   service,
	}
}
