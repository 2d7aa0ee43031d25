package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/ledger"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type staticRegistry map[uuid.UUID]bool

func (r staticRegistry) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r[id], nil
}

func startLedger(t *testing.T, registry ledger.Registry) (*crdb.Repository, *ledger.Ledger) {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}
	pool, err := pgxpool.New(ctx, dsn+"/tte?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `CREATE DATABASE IF NOT EXISTS tte`); err != nil {
		t.Fatal(err)
	}
	repo := crdb.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return repo, ledger.New(repo, registry, nil, nil, observability.NewLogger())
}

func TestLedger_Create(t *testing.T) {
	courseID := uuid.New()
	_, ldg := startLedger(t, staticRegistry{courseID: true})
	ctx := context.Background()
	holder := uuid.New()

	slot, err := ldg.Create(ctx, holder, ledger.CreateInput{
		CourseID:  courseID,
		Date:      time.Now().AddDate(0, 0, 7),
		TimeOfDay: "08:30",
		Players:   4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !slot.HeldBy(holder) {
		t.Error("expected the booking user to hold the slot")
	}

	fetched, err := ldg.Get(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.TeeTimeBooked {
		t.Errorf("expected booked, got %s", fetched.Status)
	}

	_, err = ldg.Create(ctx, holder, ledger.CreateInput{
		CourseID:  uuid.New(),
		Date:      time.Now().AddDate(0, 0, 7),
		TimeOfDay: "08:30",
		Players:   4,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for unknown course, got %v", err)
	}
}

func TestLedger_Update(t *testing.T) {
	courseID := uuid.New()
	otherCourse := uuid.New()
	repo, ldg := startLedger(t, staticRegistry{courseID: true, otherCourse: true})
	ctx := context.Background()

	holder := uuid.New()
	receiver := uuid.New()

	slot, err := ldg.Create(ctx, holder, ledger.CreateInput{
		CourseID:  courseID,
		Date:      time.Now().AddDate(0, 0, 7),
		TimeOfDay: "08:30",
		Players:   2,
	})
	if err != nil {
		t.Fatal(err)
	}

	trade, err := domain.NewTrade(slot.ID, holder, receiver)
	if err != nil {
		t.Fatal(err)
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateTrade(ctx, tx, trade)
	})
	if err != nil {
		t.Fatal(err)
	}

	newDetails := ledger.CreateInput{
		CourseID:  otherCourse,
		Date:      time.Now().AddDate(0, 0, 14),
		TimeOfDay: "14:00",
		Players:   4,
	}

	if _, err := ldg.Update(ctx, slot.ID, receiver, newDetails); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected not authorized for non-holder, got %v", err)
	}
	badDetails := newDetails
	badDetails.Players = 7
	if _, err := ldg.Update(ctx, slot.ID, holder, badDetails); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	unknownCourse := newDetails
	unknownCourse.CourseID = uuid.New()
	if _, err := ldg.Update(ctx, slot.ID, holder, unknownCourse); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for unknown course, got %v", err)
	}

	updated, err := ldg.Update(ctx, slot.ID, holder, newDetails)
	if err != nil {
		t.Fatal(err)
	}
	if updated.CourseID != otherCourse || updated.TimeOfDay != "14:00" || updated.Players != 4 {
		t.Errorf("details not applied: %+v", updated)
	}
	if !updated.HeldBy(holder) || updated.Status != domain.TeeTimeBooked {
		t.Error("edit must not touch holder or status")
	}

	// Editing the slot invalidates what the receiver agreed to.
	fetchedTrade, err := repo.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetchedTrade.Status != domain.TradeCancelled {
		t.Errorf("expected pending trade cancelled on edit, got %s", fetchedTrade.Status)
	}

	if err := ldg.Cancel(ctx, slot.ID, holder); err != nil {
		t.Fatal(err)
	}
	if _, err := ldg.Update(ctx, slot.ID, holder, newDetails); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state for cancelled slot, got %v", err)
	}
}

func TestLedger_CancelCascadesPendingTrade(t *testing.T) {
	courseID := uuid.New()
	repo, ldg := startLedger(t, staticRegistry{courseID: true})
	ctx := context.Background()

	holder := uuid.New()
	receiver := uuid.New()

	slot, err := ldg.Create(ctx, holder, ledger.CreateInput{
		CourseID:  courseID,
		Date:      time.Now().AddDate(0, 0, 7),
		TimeOfDay: "08:30",
		Players:   2,
	})
	if err != nil {
		t.Fatal(err)
	}

	trade, err := domain.NewTrade(slot.ID, holder, receiver)
	if err != nil {
		t.Fatal(err)
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateTrade(ctx, tx, trade)
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := ldg.Cancel(ctx, slot.ID, receiver); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected not authorized for non-holder, got %v", err)
	}

	if err := ldg.Cancel(ctx, slot.ID, holder); err != nil {
		t.Fatal(err)
	}

	fetchedTrade, err := repo.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetchedTrade.Status != domain.TradeCancelled {
		t.Errorf("expected cascaded cancel, got %s", fetchedTrade.Status)
	}
	fetchedSlot, err := repo.GetTeeTime(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetchedSlot.Status != domain.TeeTimeCancelled || fetchedSlot.HolderID != nil {
		t.Errorf("expected cancelled slot with no holder, got %s %v", fetchedSlot.Status, fetchedSlot.HolderID)
	}

	// A second cancel is an invalid state, not an authorization failure.
	if err := ldg.Cancel(ctx, slot.ID, holder); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}

	// The cascade and the slot cancel must land in one transaction's outbox.
	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	var sawSlotCancel, sawTradeCancel bool
	for _, rec := range records {
		switch rec.EventType {
		case "teetime.cancelled":
			sawSlotCancel = true
		case "trade.cancelled":
			sawTradeCancel = true
		}
	}
	if !sawSlotCancel || !sawTradeCancel {
		t.Errorf("expected both cancel events in outbox, got %v", records)
	}
}
