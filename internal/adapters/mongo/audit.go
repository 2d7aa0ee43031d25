package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"github.com/teetimex/tee-time-exchange/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records every committed tee-time and trade transition as an
// append-only entry, so the trade history survives as an audit trail even if
// rows are later archived out of the SQL store.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogTeeTime(ctx context.Context, action string, t domain.TeeTime) error {
	data := map[string]interface{}{
		"tee_time_id": t.ID,
		"course_id":   t.CourseID,
		"date":        t.Date.Format("2006-01-02"),
		"time":        t.TimeOfDay,
		"status":      t.Status,
	}
	var userID uuid.UUID
	if t.HolderID != nil {
		userID = *t.HolderID
	}
	return a.LogEvent(ctx, action, userID, data)
}

func (a *AuditLogger) LogTrade(ctx context.Context, action string, t domain.Trade) error {
	data := map[string]interface{}{
		"trade_id":    t.ID,
		"tee_time_id": t.TeeTimeID,
		"offered_by":  t.OfferedBy,
		"offered_to":  t.OfferedTo,
		"status":      t.Status,
	}
	return a.LogEvent(ctx, action, t.OfferedBy, data)
}
