package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"feedback_agent/feedback"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "feedback_agent"

const (
	runsCollection   = "runs"
	finalsCollection = "finals"
)

// MongoStore persists runs in MongoDB. Each document carries the listing
// fields at the top level and the full JSON shape under "record" or "result".
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
	finals *mongo.Collection
}

// OpenMongo connects, pings and returns a store bound to database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo store: connection uri is empty")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	opts := options.Client().ApplyURI(uri).
		SetMaxPoolSize(20).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo store: connect: %w", err)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo store: ping: %w", err)
	}
	return NewMongo(client, database), nil
}

// NewMongo wraps a connected client.
func NewMongo(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client: client,
		runs:   db.Collection(runsCollection),
		finals: db.Collection(finalsCollection),
	}
}

// SaveRun upserts the run record by ID.
func (s *MongoStore) SaveRun(ctx context.Context, rec feedback.RunRecord) error {
	if err := checkID(rec.ID); err != nil {
		return fmt.Errorf("mongo store: save run: %w", err)
	}
	body, err := toDocument(rec)
	if err != nil {
		return fmt.Errorf("mongo store: save run: %w", err)
	}
	sum := summarize(rec)
	doc := bson.D{
		{Key: "_id", Value: sum.ID},
		{Key: "status", Value: string(sum.Status)},
		{Key: "topic", Value: sum.Topic},
		{Key: "iterations", Value: sum.Iterations},
		{Key: "overall_score", Value: sum.OverallScore},
		{Key: "started_at", Value: sum.StartedAt},
		{Key: "finished_at", Value: sum.FinishedAt},
		{Key: "record", Value: body},
	}
	_, err = s.runs.ReplaceOne(ctx, bson.M{"_id": sum.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo store: save run: %w", err)
	}
	return nil
}

// SaveFinal upserts the final result by run ID.
func (s *MongoStore) SaveFinal(ctx context.Context, res feedback.RunResult) error {
	if err := checkID(res.RunID); err != nil {
		return fmt.Errorf("mongo store: save final: %w", err)
	}
	body, err := toDocument(res)
	if err != nil {
		return fmt.Errorf("mongo store: save final: %w", err)
	}
	doc := bson.D{
		{Key: "_id", Value: res.RunID},
		{Key: "status", Value: string(res.Status)},
		{Key: "result", Value: body},
		{Key: "saved_at", Value: time.Now().UTC()},
	}
	_, err = s.finals.ReplaceOne(ctx, bson.M{"_id": res.RunID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo store: save final: %w", err)
	}
	return nil
}

type runSummaryDoc struct {
	ID           string    `bson:"_id"`
	Status       string    `bson:"status"`
	Topic        string    `bson:"topic"`
	Iterations   int       `bson:"iterations"`
	OverallScore int       `bson:"overall_score"`
	StartedAt    time.Time `bson:"started_at"`
	FinishedAt   time.Time `bson:"finished_at"`
}

// ListRuns returns summaries, newest first.
func (s *MongoStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetProjection(bson.M{"record": 0})
	cursor, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo store: list: %w", err)
	}
	var docs []runSummaryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo store: list: decode: %w", err)
	}
	out := make([]RunSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, RunSummary{
			ID:           d.ID,
			Status:       feedback.Status(d.Status),
			Topic:        d.Topic,
			Iterations:   d.Iterations,
			OverallScore: d.OverallScore,
			StartedAt:    d.StartedAt.UTC(),
			FinishedAt:   d.FinishedAt.UTC(),
		})
	}
	return out, nil
}

// LoadRun reads one run record.
func (s *MongoStore) LoadRun(ctx context.Context, id string) (feedback.RunRecord, error) {
	var doc struct {
		Record bson.Raw `bson:"record"`
	}
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return feedback.RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return feedback.RunRecord{}, fmt.Errorf("mongo store: load: %w", err)
	}
	var rec feedback.RunRecord
	if err := fromDocument(doc.Record, &rec); err != nil {
		return feedback.RunRecord{}, fmt.Errorf("mongo store: decode %s: %w", id, err)
	}
	return rec, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toDocument converts v to BSON through its JSON form so stored field names
// match the JSON API.
func toDocument(v any) (bson.Raw, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var doc bson.Raw
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("to bson: %w", err)
	}
	return doc, nil
}

func fromDocument(doc bson.Raw, v any) error {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return fmt.Errorf("from bson: %w", err)
	}
	return json.Unmarshal(data, v)
}
