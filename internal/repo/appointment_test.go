package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("abrir sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Lead{}, &Appointment{}, &Service{}, &Professional{}, &AIConfig{}); err != nil {
		t.Fatalf("migrar: %v", err)
	}
	return db
}

func strptr(s string) *string { return &s }

func TestMarkConfirmationSent_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := Appointment{ScheduledAt: "2025-03-10T09:00:00Z", PatientName: "Ana"}
	if err := CreateAppointment(ctx, db, &a); err != nil {
		t.Fatalf("criar: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := MarkConfirmationSent(ctx, db, a.ID); err != nil {
			t.Fatalf("marcar (tentativa %d): %v", i+1, err)
		}
	}

	got, err := AppointmentByID(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("recarregar: %v", err)
	}
	if !got.ConfirmacaoEnviada {
		t.Fatal("confirmacao_enviada deveria ser true")
	}
}

func TestListPendingConfirmationByDate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seed := []Appointment{
		{ScheduledAt: "2025-03-10T14:00:00Z", PatientName: "Bia"},
		{ScheduledAt: "2025-03-10T09:00:00Z", PatientName: "Ana"},
		{ScheduledAt: "2025-03-10T10:00:00Z", PatientName: "Caio", Status: StatusCancelado},
		{ScheduledAt: "2025-03-10T11:00:00Z", PatientName: "Davi", ConfirmacaoEnviada: true},
		{ScheduledAt: "2025-03-11T09:00:00Z", PatientName: "Eva"},
	}
	for i := range seed {
		if err := CreateAppointment(ctx, db, &seed[i]); err != nil {
			t.Fatalf("criar %s: %v", seed[i].PatientName, err)
		}
	}

	list, err := ListPendingConfirmationByDate(ctx, db, "2025-03-10")
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("esperava 2 pendentes, veio %d", len(list))
	}
	if list[0].PatientName != "Ana" || list[1].PatientName != "Bia" {
		t.Fatalf("ordem errada: %s, %s", list[0].PatientName, list[1].PatientName)
	}
}

func TestListAppointmentsBetweenDates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, at := range []string{
		"2025-03-09T09:00:00Z",
		"2025-03-10T09:00:00Z",
		"2025-03-12T09:00:00Z",
		"2025-03-13T09:00:00Z",
	} {
		a := Appointment{ScheduledAt: at, PatientName: "X"}
		if err := CreateAppointment(ctx, db, &a); err != nil {
			t.Fatalf("criar: %v", err)
		}
	}

	list, err := ListAppointmentsBetweenDates(ctx, db, "2025-03-10", "2025-03-12")
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("esperava 2 na faixa, veio %d", len(list))
	}
}

func TestAppointmentsForConfirmation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	lead := Lead{Nome: "Ana", Telefone: strptr("5511999990000")}
	if err := CreateLead(ctx, db, &lead); err != nil {
		t.Fatalf("criar lead: %v", err)
	}

	withOwnPhone := Appointment{ScheduledAt: "2025-03-10T09:00:00Z", PatientName: "Bia", PhoneNumber: strptr("5511888880000")}
	fromLead := Appointment{ScheduledAt: "2025-03-10T10:00:00Z", PatientName: "Ana", LeadID: &lead.ID}
	for _, a := range []*Appointment{&withOwnPhone, &fromLead} {
		if err := CreateAppointment(ctx, db, a); err != nil {
			t.Fatalf("criar: %v", err)
		}
	}

	// Reversed order plus one unknown id: order must follow the input, unknown
	// ids are skipped.
	rows, err := AppointmentsForConfirmation(ctx, db, []uuid.UUID{fromLead.ID, uuid.New(), withOwnPhone.ID})
	if err != nil {
		t.Fatalf("carregar: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("esperava 2 linhas, veio %d", len(rows))
	}
	if rows[0].ID != fromLead.ID || rows[1].ID != withOwnPhone.ID {
		t.Fatal("ordem de entrada não preservada")
	}
	if rows[0].LeadPhone != "5511999990000" {
		t.Fatalf("lead_phone = %q", rows[0].LeadPhone)
	}
	if rows[1].PhoneNumber == nil || *rows[1].PhoneNumber != "5511888880000" {
		t.Fatal("phone_number próprio não veio")
	}
	if rows[1].LeadPhone != "" {
		t.Fatalf("lead_phone sem lead deveria ser vazio, veio %q", rows[1].LeadPhone)
	}
}

func TestAppointmentsForConfirmation_Empty(t *testing.T) {
	db := testDB(t)
	rows, err := AppointmentsForConfirmation(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("carregar: %v", err)
	}
	if rows != nil {
		t.Fatalf("esperava nil, veio %v", rows)
	}
}

func TestGetAIConfig_DefaultWhenMissing(t *testing.T) {
	db := testDB(t)
	c, err := GetAIConfig(context.Background(), db)
	if err != nil {
		t.Fatalf("carregar: %v", err)
	}
	if c.NomeAgente != "Assistente" || !c.Ativo {
		t.Fatalf("default inesperado: %+v", c)
	}
}

func TestUpsertAIConfig_ReplacesSingleRow(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := AIConfig{NomeAgente: "Clara", Modelo: "gpt-4o-mini", Temperatura: 0.7, Ativo: true}
	if err := UpsertAIConfig(ctx, db, &first); err != nil {
		t.Fatalf("primeiro upsert: %v", err)
	}
	second := AIConfig{NomeAgente: "Sofia", Modelo: "gpt-4o", Temperatura: 0.5, Ativo: true}
	if err := UpsertAIConfig(ctx, db, &second); err != nil {
		t.Fatalf("segundo upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("upsert deveria reutilizar a linha existente")
	}

	got, err := GetAIConfig(ctx, db)
	if err != nil {
		t.Fatalf("carregar: %v", err)
	}
	if got.NomeAgente != "Sofia" {
		t.Fatalf("nome_agente = %q", got.NomeAgente)
	}
}
