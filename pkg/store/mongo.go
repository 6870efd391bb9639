// Package store persists computed layouts so past arrangements can be
// retrieved by snapshot hash.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patchgrid/patchgrid/pkg/layout"
)

// ErrNotFound indicates no stored layout matches the query.
var ErrNotFound = errors.New("layout not found")

const (
	defaultDatabase   = "patchgrid"
	defaultCollection = "layouts"
	connectTimeout    = 10 * time.Second
)

// Record is a stored layout with its identity and bookkeeping fields.
type Record struct {
	SnapshotHash string        `bson:"snapshot_hash" json:"snapshot_hash"`
	Mode         string        `bson:"mode" json:"mode"`
	Layout       layout.Layout `bson:"layout" json:"layout"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// LayoutStore persists layouts in MongoDB, keyed by snapshot hash and
// arrangement mode. Saving the same key twice replaces the older record.
type LayoutStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewLayoutStore connects to MongoDB and prepares the layouts collection.
func NewLayoutStore(ctx context.Context, uri string) (*LayoutStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(defaultDatabase).Collection(defaultCollection)

	// One record per (snapshot, mode) pair.
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "snapshot_hash", Value: 1}, {Key: "mode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &LayoutStore{client: client, coll: coll}, nil
}

// Save upserts a layout record for its snapshot hash and mode.
func (s *LayoutStore) Save(ctx context.Context, l layout.Layout) error {
	if l.SnapshotHash == "" {
		return fmt.Errorf("layout has no snapshot hash")
	}
	rec := Record{
		SnapshotHash: l.SnapshotHash,
		Mode:         l.Mode,
		Layout:       l,
		UpdatedAt:    time.Now().UTC(),
	}
	filter := bson.M{"snapshot_hash": rec.SnapshotHash, "mode": rec.Mode}
	_, err := s.coll.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	return nil
}

// Get retrieves the layout stored for a snapshot hash and mode.
func (s *LayoutStore) Get(ctx context.Context, snapshotHash, mode string) (layout.Layout, error) {
	var rec Record
	filter := bson.M{"snapshot_hash": snapshotHash, "mode": mode}
	err := s.coll.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return layout.Layout{}, ErrNotFound
	}
	if err != nil {
		return layout.Layout{}, fmt.Errorf("get layout: %w", err)
	}
	return rec.Layout, nil
}

// List returns the most recently updated records, newest first.
func (s *LayoutStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer cur.Close(ctx)

	var records []Record
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode layouts: %w", err)
	}
	return records, nil
}

// Delete removes the record for a snapshot hash and mode.
// Deleting a missing record is not an error.
func (s *LayoutStore) Delete(ctx context.Context, snapshotHash, mode string) error {
	filter := bson.M{"snapshot_hash": snapshotHash, "mode": mode}
	if _, err := s.coll.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *LayoutStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
