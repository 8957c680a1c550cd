package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mbolis/santas-scanner/log"
	"github.com/mbolis/santas-scanner/model"
)

type MongoOptions struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// MongoStore keeps scan results in a MongoDB collection. The client is
// created on the first successful Connect and reused afterwards.
type MongoStore struct {
	opts MongoOptions

	mu         sync.Mutex
	client     *mongo.Client
	collection *mongo.Collection
}

type scanDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Verdict   string             `bson:"verdict"`
	Message   string             `bson:"message"`
	Score     float64            `bson:"score"`
	Country   string             `bson:"country,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`
}

func NewMongoStore(opts MongoOptions) *MongoStore {
	return &MongoStore{opts: opts}
}

func (s *MongoStore) Connect(ctx context.Context) error {
	_, err := s.ensureConnected(ctx)
	return err
}

func (s *MongoStore) ensureConnected(ctx context.Context) (*mongo.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection != nil {
		return s.collection, nil
	}

	ctx, cancel := withTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(s.opts.URI)
	if s.opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(s.opts.ConnectTimeout).
			SetServerSelectionTimeout(s.opts.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	collection := client.Database(s.opts.Database).Collection(s.opts.Collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("score_index"),
	}
	indexName, err := collection.Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		// queries still work without it, only slower
		log.Warnf("db.mongo.create_index: %s", err)
	} else {
		log.Debugf("db.mongo.create_index: %s", indexName)
	}

	s.client = client
	s.collection = collection
	log.Infof("Connected to MongoDB database %s", s.opts.Database)
	return collection, nil
}

func (s *MongoStore) Insert(ctx context.Context, candidate model.ScanCandidate) (model.ScanResult, error) {
	res, err := Prepare(candidate, time.Now())
	if err != nil {
		return model.ScanResult{}, err
	}

	collection, err := s.ensureConnected(ctx)
	if err != nil {
		return model.ScanResult{}, err
	}

	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	doc := scanDocument{
		Name:      res.Name,
		Verdict:   string(res.Verdict),
		Message:   res.Message,
		Score:     res.Score,
		Country:   res.Country,
		Timestamp: res.Timestamp,
	}
	inserted, err := collection.InsertOne(ctx, doc)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("insert scan result: %w", err)
	}

	id, ok := inserted.InsertedID.(primitive.ObjectID)
	if !ok {
		return model.ScanResult{}, errors.New("insert scan result: unexpected id type")
	}
	res.ID = id.Hex()
	return res, nil
}

func (s *MongoStore) QueryTop(ctx context.Context, limit int) ([]model.ScanResult, error) {
	collection, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opts.OpTimeout)
	defer cancel()

	// ObjectIDs grow with insertion time, so equal scores keep insertion order
	findOpts := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(normalizeLimit(limit)))

	cursor, err := collection.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find scan results: %w", err)
	}
	defer cursor.Close(ctx)

	results := []model.ScanResult{}
	for cursor.Next(ctx) {
		var doc scanDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode scan result: %w", err)
		}
		results = append(results, model.ScanResult{
			ID:        doc.ID.Hex(),
			Name:      doc.Name,
			Verdict:   model.Verdict(doc.Verdict),
			Message:   doc.Message,
			Score:     doc.Score,
			Country:   doc.Country,
			Timestamp: doc.Timestamp.UTC(),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan results: %w", err)
	}
	return results, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.collection = nil
	return err
}
