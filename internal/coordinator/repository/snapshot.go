package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	coorderrors "reservd/internal/coordinator/errors"
	"reservd/pkg/config"
	"reservd/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "ResourceSnapshots"
)

// SnapshotRepository stores the full per-resource snapshot as a single
// document keyed by the resource key, replaced wholesale on every mutation.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *model.Snapshot) error
	Load(ctx context.Context, key model.ResourceKey) (*model.Snapshot, error)
	Count(ctx context.Context) (int64, error)
}

type mongoSnapshotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSnapshotRepository(cfg *config.Config) SnapshotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSnapshotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSnapshotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSnapshotRepository) Save(ctx context.Context, snapshot *model.Snapshot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": snapshot.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, snapshot, opts); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

func (r *mongoSnapshotRepository) Load(ctx context.Context, key model.ResourceKey) (*model.Snapshot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"_id": key.String()}

	var snapshot model.Snapshot
	err := r.collection.FindOne(ctx, filter).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, coorderrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key.String(), err)
	}

	return &snapshot, nil
}

func (r *mongoSnapshotRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}
