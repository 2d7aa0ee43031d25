package exchange_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/exchange"
	"github.com/teetimex/tee-time-exchange/internal/ledger"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startExchange(t *testing.T, acceptMarksTraded bool) (*crdb.Repository, *exchange.Exchange) {
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
	return repo, exchange.New(repo, nil, nil, observability.NewLogger(), acceptMarksTraded)
}

func registerUser(t *testing.T, repo *crdb.Repository, email string) uuid.UUID {
	t.Helper()
	u, err := domain.NewUser(email, "Test Player", "hashed", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func bookSlot(t *testing.T, repo *crdb.Repository, holder uuid.UUID) domain.TeeTime {
	t.Helper()
	ctx := context.Background()
	slot, err := domain.NewTeeTime(holder, uuid.New(), time.Now().AddDate(0, 0, 7), "08:30", 2, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateTeeTime(ctx, tx, slot)
	})
	if err != nil {
		t.Fatal(err)
	}
	return slot
}

func TestExchange_OfferAndAccept(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if trade.Status != domain.TradePending {
		t.Errorf("expected pending, got %s", trade.Status)
	}

	// Only one pending offer per slot.
	carol := registerUser(t, repo, "carol@example.com")
	if _, err := exch.Offer(ctx, slot.ID, alice, carol); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict for second offer, got %v", err)
	}

	accepted, err := exch.Respond(ctx, trade.ID, bob, domain.DecisionAccept)
	if err != nil {
		t.Fatal(err)
	}
	if accepted.Status != domain.TradeAccepted {
		t.Errorf("expected accepted, got %s", accepted.Status)
	}

	fetched, err := repo.GetTeeTime(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !fetched.HeldBy(bob) {
		t.Errorf("expected holder to move to the acceptor, got %v", fetched.HolderID)
	}
	if fetched.Status != domain.TeeTimeBooked {
		t.Errorf("expected booked after accept, got %s", fetched.Status)
	}

	// Terminal trades admit no second decision.
	if _, err := exch.Respond(ctx, trade.ID, bob, domain.DecisionReject); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
}

func TestExchange_AcceptMarksTraded(t *testing.T) {
	repo, exch := startExchange(t, true)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exch.Respond(ctx, trade.ID, bob, domain.DecisionAccept); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetTeeTime(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.TeeTimeTraded {
		t.Errorf("expected traded, got %s", fetched.Status)
	}
	if !fetched.HeldBy(bob) {
		t.Errorf("expected holder to move, got %v", fetched.HolderID)
	}
}

func TestExchange_RejectKeepsHolder(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	rejected, err := exch.Respond(ctx, trade.ID, bob, domain.DecisionReject)
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != domain.TradeRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}

	fetched, err := repo.GetTeeTime(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !fetched.HeldBy(alice) {
		t.Errorf("expected holder unchanged, got %v", fetched.HolderID)
	}

	// Rejection frees the slot for a fresh offer.
	if _, err := exch.Offer(ctx, slot.ID, alice, bob); err != nil {
		t.Errorf("expected new offer after reject, got %v", err)
	}
}

func TestExchange_OfferAuthorization(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)

	if _, err := exch.Offer(ctx, slot.ID, alice, alice); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for self-trade, got %v", err)
	}
	if _, err := exch.Offer(ctx, slot.ID, bob, alice); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected not authorized for non-holder, got %v", err)
	}
	if _, err := exch.Offer(ctx, slot.ID, alice, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown receiver, got %v", err)
	}
	if _, err := exch.Offer(ctx, uuid.New(), alice, bob); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for unknown slot, got %v", err)
	}
}

func TestExchange_RespondAuthorization(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exch.Respond(ctx, trade.ID, alice, domain.DecisionAccept); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected not authorized for the offeror, got %v", err)
	}
	if _, err := exch.Respond(ctx, trade.ID, uuid.New(), domain.DecisionAccept); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected not authorized for a third party, got %v", err)
	}
	if _, err := exch.Respond(ctx, uuid.New(), bob, domain.DecisionAccept); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestExchange_StaleAcceptCancelsTrade(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	carol := registerUser(t, repo, "carol@example.com")
	slot := bookSlot(t, repo, alice)

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	// The slot changes hands out from under the pending offer.
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.TransferHolder(ctx, tx, slot.ID, alice, carol, domain.TeeTimeBooked)
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := exch.Respond(ctx, trade.ID, bob, domain.DecisionAccept); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on stale accept, got %v", err)
	}

	fetched, err := repo.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.TradeCancelled {
		t.Errorf("expected stale trade cancelled, got %s", fetched.Status)
	}
	unchanged, err := repo.GetTeeTime(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !unchanged.HeldBy(carol) {
		t.Errorf("expected holder untouched by stale accept, got %v", unchanged.HolderID)
	}
}

func TestExchange_ConcurrentCancelVsAccept(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)
	ldg := ledger.New(repo, nil, nil, nil, observability.NewLogger())

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	var cancelErr, acceptErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cancelErr = ldg.Cancel(ctx, slot.ID, alice)
	}()
	go func() {
		defer wg.Done()
		_, acceptErr = exch.Respond(ctx, trade.ID, bob, domain.DecisionAccept)
	}()
	wg.Wait()

	if cancelErr == nil && acceptErr == nil {
		t.Fatal("cancel and accept must not both succeed")
	}

	fetchedSlot, err := repo.GetTeeTime(ctx, slot.ID)
	if err != nil {
		t.Fatal(err)
	}
	fetchedTrade, err := repo.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := fetchedSlot.CheckInvariant(); err != nil {
		t.Error(err)
	}
	switch fetchedTrade.Status {
	case domain.TradeAccepted:
		if !fetchedSlot.HeldBy(bob) {
			t.Errorf("accepted trade but holder is %v", fetchedSlot.HolderID)
		}
	case domain.TradeCancelled:
		// Either the slot was cancelled underneath the offer, or the accept
		// observed a stale holder. Both leave no pending offer behind.
	case domain.TradePending:
		if cancelErr == nil {
			t.Error("committed cancel must not leave a pending trade")
		}
	default:
		t.Errorf("unexpected trade status %s", fetchedTrade.Status)
	}
	if fetchedSlot.Status == domain.TeeTimeCancelled && fetchedTrade.Status == domain.TradeAccepted {
		t.Error("cancelled slot must not carry an accepted swap")
	}
}

func TestExchange_CancelOffer(t *testing.T) {
	repo, exch := startExchange(t, false)
	ctx := context.Background()

	alice := registerUser(t, repo, "alice@example.com")
	bob := registerUser(t, repo, "bob@example.com")
	slot := bookSlot(t, repo, alice)

	trade, err := exch.Offer(ctx, slot.ID, alice, bob)
	if err != nil {
		t.Fatal(err)
	}

	if err := exch.CancelOffer(ctx, trade.ID, bob); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("expected not authorized for the receiver, got %v", err)
	}
	if err := exch.CancelOffer(ctx, trade.ID, alice); err != nil {
		t.Fatal(err)
	}

	fetched, err := repo.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.TradeCancelled {
		t.Errorf("expected cancelled, got %s", fetched.Status)
	}

	// Withdrawing frees the slot for a fresh offer.
	if _, err := exch.Offer(ctx, slot.ID, alice, bob); err != nil {
		t.Errorf("expected new offer after withdraw, got %v", err)
	}
}
