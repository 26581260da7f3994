package db

import (
	"context"
	"fmt"
	"time"

	"dutchAuction/game"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// MongoClient is the global MongoDB client
	MongoClient *mongo.Client
)

// InitMongo connects to MongoDB and verifies the connection.
func InitMongo(uri string) error {
	log.Info("🔌 Connecting to MongoDB...")

	if uri == "" {
		return fmt.Errorf("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoClient = c
	log.Info("✅ MongoDB connected")
	return nil
}

// CloseMongo disconnects the global client.
func CloseMongo(ctx context.Context) {
	if MongoClient != nil {
		log.Info("🔌 Closing MongoDB connection...")
		_ = MongoClient.Disconnect(ctx)
		MongoClient = nil
	}
}

// trialDoc is the stored shape of one trial.
type trialDoc struct {
	RunID      string    `bson:"run_id"`
	BlockNo    int       `bson:"block_no"`
	TrialNo    int       `bson:"trial_no"`
	Prop       float64   `bson:"prop"`
	Qty        int       `bson:"qty"`
	StartPrice float64   `bson:"start_price"`
	EndPrice   float64   `bson:"end_price"`
	OppBid     float64   `bson:"opp_bid"`
	Status     string    `bson:"status"`
	Step       int       `bson:"step,omitempty"`
	Price      float64   `bson:"price,omitempty"`
	Winner     string    `bson:"winner,omitempty"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toTrialDoc(runID string, t game.Trial, now time.Time) trialDoc {
	return trialDoc{
		RunID:      runID,
		BlockNo:    t.BlockNo,
		TrialNo:    t.TrialNo,
		Prop:       t.Prop,
		Qty:        t.Qty,
		StartPrice: t.StartPrice,
		EndPrice:   t.EndPrice,
		OppBid:     t.OppBid,
		Status:     string(t.Status),
		Step:       t.Step,
		Price:      t.Price,
		Winner:     t.Winner,
		UpdatedAt:  now,
	}
}

func (d trialDoc) trial() game.Trial {
	return game.Trial{
		BlockNo:    d.BlockNo,
		TrialNo:    d.TrialNo,
		Prop:       d.Prop,
		Qty:        d.Qty,
		StartPrice: d.StartPrice,
		EndPrice:   d.EndPrice,
		OppBid:     d.OppBid,
		Status:     game.TrialStatus(d.Status),
		Step:       d.Step,
		Price:      d.Price,
		Winner:     d.Winner,
	}
}

// MongoTrialStore keeps one document per (run, block, trial).
type MongoTrialStore struct {
	coll *mongo.Collection
}

func NewMongoTrialStore(client *mongo.Client, dbName string) *MongoTrialStore {
	return &MongoTrialStore{
		coll: client.Database(dbName).Collection("trials"),
	}
}

func (s *MongoTrialStore) Name() string { return "mongo" }

func (s *MongoTrialStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}, {Key: "block_no", Value: 1}, {Key: "trial_no", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SaveTrials upserts every trial of the table.
func (s *MongoTrialStore) SaveTrials(ctx context.Context, runID string, trials []game.Trial) error {
	now := time.Now().UTC()

	models := make([]mongo.WriteModel, 0, len(trials))
	for _, t := range trials {
		filter := bson.M{"run_id": runID, "block_no": t.BlockNo, "trial_no": t.TrialNo}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(toTrialDoc(runID, t, now)).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}

	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert trials: %w", err)
	}
	return nil
}

// ListTrials returns a run's trials in presentation order.
func (s *MongoTrialStore) ListTrials(ctx context.Context, runID string) ([]game.Trial, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "block_no", Value: 1}, {Key: "trial_no", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find trials: %w", err)
	}
	defer cur.Close(ctx)

	var docs []trialDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode trials: %w", err)
	}

	out := make([]game.Trial, len(docs))
	for i, d := range docs {
		out[i] = d.trial()
	}
	log.Debug("Loaded trials from MongoDB", zap.String("runId", runID), zap.Int("count", len(out)))
	return out, nil
}

// HealthCheckMongo pings the server.
func HealthCheckMongo(ctx context.Context) error {
	if MongoClient == nil {
		return fmt.Errorf("MongoDB client not initialized")
	}
	return MongoClient.Ping(ctx, nil)
}
