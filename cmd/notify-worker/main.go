package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/adapters/rabbit"
	"github.com/teetimex/tee-time-exchange/internal/config"
	"github.com/teetimex/tee-time-exchange/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	consumer, err := rabbit.NewConsumer(conn, "tte.notify", "trade.*", "teetime.cancelled")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	worker := NewNotifyWorker(repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}
	go worker.Run(ctx, deliveries)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notify worker")
}

type NotifyWorker struct {
	repo   *crdb.Repository
	logger observability.Logger
}

func NewNotifyWorker(repo *crdb.Repository, logger observability.Logger) *NotifyWorker {
	return &NotifyWorker{repo: repo, logger: logger}
}

type tradeEvent struct {
	TradeID   uuid.UUID `json:"trade_id"`
	TeeTimeID uuid.UUID `json:"tee_time_id"`
	OfferedBy uuid.UUID `json:"offered_by"`
	OfferedTo uuid.UUID `json:"offered_to"`
	Status    string    `json:"status"`
}

func (w *NotifyWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Notify worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			if err := w.handleWithRetry(ctx, d); err != nil {
				w.logger.Error("failed to handle event after retries", err)
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

func (w *NotifyWorker) handleWithRetry(ctx context.Context, d amqp.Delivery) error {
	var err error
	for i := 0; i < 3; i++ {
		if err = w.handle(ctx, d); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func (w *NotifyWorker) handle(ctx context.Context, d amqp.Delivery) error {
	// Slot cancellations fan out through the cascaded trade.cancelled
	// events; the bare teetime.cancelled has no recipient of its own.
	if d.RoutingKey == "teetime.cancelled" {
		w.logger.WithField("event", d.RoutingKey).Debug("tee time cancelled")
		return nil
	}

	var ev tradeEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		w.logger.Error("malformed event payload", err)
		return nil
	}

	var recipient uuid.UUID
	var pref string
	switch d.RoutingKey {
	case "trade.offered":
		recipient, pref = ev.OfferedTo, "trade_offers"
	case "trade.accepted", "trade.rejected":
		recipient, pref = ev.OfferedBy, "trade_results"
	case "trade.cancelled":
		recipient, pref = ev.OfferedTo, "cancellations"
	default:
		return nil
	}

	user, err := w.repo.GetUser(ctx, recipient)
	if err != nil {
		return err
	}
	if !user.WantsNotification(pref) {
		return nil
	}

	w.logger.WithField("user_id", user.ID).
		WithField("event", d.RoutingKey).
		WithField("trade_id", ev.TradeID).
		Info("notification sent to ", user.Email)
	observability.NotificationsSent.WithLabelValues(d.RoutingKey).Inc()
	return nil
}
