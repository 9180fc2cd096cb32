package runlog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRecorder stores runs as documents, one per run, keyed by run id.
type MongoRecorder struct {
	Client     *mongo.Client
	Database   string
	Collection string
}

func NewMongoRecorder(client *mongo.Client, database, collection string) *MongoRecorder {
	return &MongoRecorder{Client: client, Database: database, Collection: collection}
}

func (m *MongoRecorder) coll() *mongo.Collection {
	return m.Client.Database(m.Database).Collection(m.Collection)
}

func (m *MongoRecorder) Record(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": run.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.coll().ReplaceOne(ctx, filter, run, opts); err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first. An empty job matches all.
func (m *MongoRecorder) Recent(ctx context.Context, job string, limit int64) ([]Run, error) {
	filter := bson.M{}
	if job != "" {
		filter["job"] = job
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := m.coll().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []Run
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("decoding runs: %w", err)
	}
	return runs, nil
}
