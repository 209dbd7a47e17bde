package archive

import (
	"bytes"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/errors"
	"github.com/kevindalmeijer/TowerBlocksOptimizer/pkg/report"
)

// Default MongoDB names.
const (
	DefaultDatabase   = "towerblocks"
	DefaultCollection = "runs"
)

// MongoConfig configures the MongoDB archive backend.
type MongoConfig struct {
	// URI is the connection string, e.g. mongodb://localhost:27017
	URI string

	// Database and Collection override the defaults.
	Database   string
	Collection string
}

// MongoStore archives runs in a MongoDB collection. Query fields are
// lifted out of the report into the document so Best and List stay
// index-friendly; the full report travels as an opaque JSON payload.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

// runDoc is the stored document shape.
type runDoc struct {
	RunID     string    `bson:"run_id"`
	Rows      int       `bson:"rows"`
	Cols      int       `bson:"cols"`
	TableKey  string    `bson:"table_key"`
	Score     int       `bson:"score"`
	Optimal   bool      `bson:"optimal"`
	CreatedAt time.Time `bson:"created_at"`
	Payload   []byte    `bson:"payload"`
}

// NewMongoStore connects to MongoDB and prepares the archive collection,
// creating its indexes if needed.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeStore, "mongo URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to %s", cfg.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping %s", cfg.URI)
	}

	col := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "run_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "rows", Value: 1},
				{Key: "cols", Value: 1},
				{Key: "table_key", Value: 1},
				{Key: "score", Value: -1},
			},
		},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create archive indexes")
	}

	return &MongoStore{client: client, col: col}, nil
}

func (s *MongoStore) Put(ctx context.Context, rep *report.Report) error {
	if err := rep.Verify(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		return err
	}
	doc := runDoc{
		RunID:     rep.RunID,
		Rows:      rep.Rows,
		Cols:      rep.Cols,
		TableKey:  rep.TableKey,
		Score:     rep.Score,
		Optimal:   rep.Optimal,
		CreatedAt: rep.CreatedAt,
		Payload:   buf.Bytes(),
	}

	_, err := s.col.UpdateOne(ctx,
		bson.M{"run_id": rep.RunID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "archive run %s", rep.RunID)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	return s.findOne(ctx, bson.M{"run_id": runID})
}

func (s *MongoStore) Best(ctx context.Context, rows, cols int, tableKey string) (*report.Report, error) {
	filter := bson.M{"rows": rows, "cols": cols, "table_key": tableKey}
	sort := bson.D{
		{Key: "score", Value: -1},
		{Key: "optimal", Value: -1},
		{Key: "created_at", Value: -1},
	}
	return s.findOne(ctx, filter, options.FindOne().SetSort(sort))
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]*report.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list runs")
	}
	defer cursor.Close(ctx)

	var reps []*report.Report
	for cursor.Next(ctx) {
		var doc runDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "decode run document")
		}
		rep, err := decodePayload(doc)
		if err != nil {
			// A single bad document must not hide the rest of the archive.
			continue
		}
		reps = append(reps, rep)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "iterate runs")
	}
	return reps, nil
}

func (s *MongoStore) Delete(ctx context.Context, runID string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"run_id": runID}); err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete run %s", runID)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*report.Report, error) {
	var doc runDoc
	if err := s.col.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode run document")
	}
	return decodePayload(doc)
}

// decodePayload revives and verifies the stored report.
func decodePayload(doc runDoc) (*report.Report, error) {
	rep, err := report.Read(bytes.NewReader(doc.Payload))
	if err != nil {
		return nil, err
	}
	if err := rep.Verify(); err != nil {
		return nil, err
	}
	return rep, nil
}

var _ Store = (*MongoStore)(nil)
