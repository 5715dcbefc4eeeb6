// internal/output/mongodb.go
package output

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/utils"
)

const mongoConnectTimeout = 10 * time.Second

// mongoDuplicateKey is the server error code for a unique-index
// violation.
const mongoDuplicateKey = 11000

// MongoWriter writes records to a MongoDB collection. A unique index on
// record_key plus unordered inserts make re-runs idempotent: duplicate
// keys are swallowed, everything else surfaces.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        utils.Logger
}

// NewMongoWriter connects, and ensures the unique identity index.
func NewMongoWriter(config Config, log utils.Logger) (*MongoWriter, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("mongodb output requires a connection URI")
	}
	database := config.Database
	if database == "" {
		database = "agentharvest"
	}
	collName := config.Collection
	if collName == "" {
		collName = "agents"
	}
	if log == nil {
		log = utils.NewComponentLogger("mongodb-output")
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(collName)

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "record_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := collection.Indexes().CreateOne(ctx, index); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create identity index: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"database":   database,
		"collection": collName,
	}).Debug("mongodb sink ready")

	return &MongoWriter{
		client:     client,
		collection: collection,
		log:        log,
	}, nil
}

func (w *MongoWriter) Write(ctx context.Context, records []agents.Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		doc := bson.M{}
		for i, value := range rowValues(rec) {
			doc[columns[i]] = value
		}
		docs = append(docs, doc)
	}

	_, err := w.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicateKeys(err) {
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

func (w *MongoWriter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return w.client.Disconnect(ctx)
}

// onlyDuplicateKeys reports whether every write error in a bulk result
// is a unique-index violation.
func onlyDuplicateKeys(err error) bool {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return false
	}
	if len(bulkErr.WriteErrors) == 0 || bulkErr.WriteConcernError != nil {
		return false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != mongoDuplicateKey {
			return false
		}
	}
	return true
}
