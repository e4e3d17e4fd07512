// Package mongo implements the storage interfaces over the MongoDB
// document store that holds the raw rider, swap and payment collections.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the rider management database.
const (
	ridersCollection   = "riders"
	swapsCollection    = "swaphistories"
	paymentsCollection = "payments"
)

// DB wraps a mongo database handle for dependency injection.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDB connects to MongoDB and verifies the connection.
func NewDB(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &DB{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the scan predicates rely on:
// unique riderId on riders, riderId/swapDate/location.name on swap
// history, status/createdAt on payments.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	unique := true
	_, err := d.db.Collection(ridersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "riderId", Value: 1}},
		Options: &options.IndexOptions{Unique: &unique},
	})
	if err != nil {
		return fmt.Errorf("create riders index: %w", err)
	}

	_, err = d.db.Collection(swapsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "riderId", Value: 1}}},
		{Keys: bson.D{{Key: "swapDate", Value: 1}}},
		{Keys: bson.D{{Key: "location.name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create swaphistories indexes: %w", err)
	}

	_, err = d.db.Collection(paymentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "riderId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create payments indexes: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if error is a unique index violation.
func isDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
