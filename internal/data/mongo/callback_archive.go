// Package mongo stores raw gateway notifications for manual reconciliation.
// The archive is write-mostly and best-effort: a failed archive write never
// blocks callback acknowledgement.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const callbackCollection = "gateway_callbacks"

// CallbackRecord is one raw inbound gateway notification
type CallbackRecord struct {
	Kind       string    `bson:"kind"` // payment_result, reversal_result, reversal_timeout
	Payload    string    `bson:"payload"`
	ReceivedAt time.Time `bson:"received_at"`
}

// CallbackArchive persists raw gateway callbacks to MongoDB
type CallbackArchive struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewCallbackArchive creates a callback archive backed by the given database
func NewCallbackArchive(logger *slog.Logger, db *mongo.Database) *CallbackArchive {
	return &CallbackArchive{
		collection: db.Collection(callbackCollection),
		logger:     logger,
	}
}

// Save appends a raw callback payload
func (a *CallbackArchive) Save(ctx context.Context, kind string, payload []byte) error {
	record := CallbackRecord{
		Kind:       kind,
		Payload:    string(payload),
		ReceivedAt: time.Now(),
	}

	if _, err := a.collection.InsertOne(ctx, record); err != nil {
		a.logger.Error("Failed to archive gateway callback", "kind", kind, "error", err)
		return fmt.Errorf("failed to archive gateway callback: %w", err)
	}

	return nil
}

// ListByKind returns archived callbacks of one kind, newest first, for
// reconciliation tooling
func (a *CallbackArchive) ListByKind(ctx context.Context, kind string, limit int64) ([]*CallbackRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := a.collection.Find(ctx, bson.M{"kind": kind}, opts)
	if err != nil {
		a.logger.Error("Failed to list archived callbacks", "kind", kind, "error", err)
		return nil, fmt.Errorf("failed to list archived callbacks: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*CallbackRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode archived callbacks: %w", err)
	}

	return records, nil
}
