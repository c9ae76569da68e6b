package db

import (
	"context"
	"fmt"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestCreated = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

// InsertTractor inserts a tractor record
func (s *MongoStore) InsertTractor(ctx context.Context, tractor models.Tractor) error {
	tractor.CreatedAt = bsonTime(tractor.CreatedAt)
	if err := requireRefs(ctx, map[*mongo.Collection]string{s.users: tractor.OwnerID}); err != nil {
		return err
	}
	if _, err := s.tractors.InsertOne(ctx, tractor); err != nil {
		return fmt.Errorf("failed to insert tractor: %w", translateMongoError(err))
	}
	return nil
}

// FindTractorByID finds a tractor by ID
func (s *MongoStore) FindTractorByID(ctx context.Context, id string) (*models.Tractor, error) {
	var t models.Tractor
	if err := findOne(ctx, s.tractors, bson.M{"_id": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTractors lists tractors, newest first
func (s *MongoStore) FindTractors(ctx context.Context) ([]models.Tractor, error) {
	tractors := []models.Tractor{}
	if err := findAll(ctx, s.tractors, bson.M{}, &tractors, newestCreated); err != nil {
		return nil, fmt.Errorf("failed to list tractors: %w", err)
	}
	return tractors, nil
}

// UpdateTractor merges the present patch fields into the stored tractor.
func (s *MongoStore) UpdateTractor(ctx context.Context, id string, patch models.TractorPatch) (*models.Tractor, error) {
	t, err := s.FindTractorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return t, nil
	}
	patch.Apply(t)

	res, err := s.tractors.ReplaceOne(ctx, bson.M{"_id": id}, t)
	if err != nil {
		return nil, fmt.Errorf("failed to update tractor: %w", translateMongoError(err))
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return t, nil
}

// DeleteTractor removes a tractor that nothing references.
func (s *MongoStore) DeleteTractor(ctx context.Context, id string) error {
	return s.deleteUnreferenced(ctx, s.tractors, id, "tractor_id",
		s.operations, s.telemetry, s.fuelLogs, s.alerts)
}

// CountTractors counts registered tractors
func (s *MongoStore) CountTractors(ctx context.Context) (int, error) {
	return countDocuments(ctx, s.tractors, bson.M{})
}

// InsertImplement inserts an implement record
func (s *MongoStore) InsertImplement(ctx context.Context, implement models.Implement) error {
	implement.CreatedAt = bsonTime(implement.CreatedAt)
	if err := requireRefs(ctx, map[*mongo.Collection]string{s.users: implement.OwnerID}); err != nil {
		return err
	}
	if _, err := s.implements.InsertOne(ctx, implement); err != nil {
		return fmt.Errorf("failed to insert implement: %w", translateMongoError(err))
	}
	return nil
}

// FindImplementByID finds an implement by ID
func (s *MongoStore) FindImplementByID(ctx context.Context, id string) (*models.Implement, error) {
	var i models.Implement
	if err := findOne(ctx, s.implements, bson.M{"_id": id}, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// FindImplementByOwnerAndName finds an implement by its per-owner unique name
func (s *MongoStore) FindImplementByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Implement, error) {
	var i models.Implement
	if err := findOne(ctx, s.implements, bson.M{"owner_id": ownerID, "name": name}, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// FindImplements lists implements, newest first
func (s *MongoStore) FindImplements(ctx context.Context) ([]models.Implement, error) {
	implements := []models.Implement{}
	if err := findAll(ctx, s.implements, bson.M{}, &implements, newestCreated); err != nil {
		return nil, fmt.Errorf("failed to list implements: %w", err)
	}
	return implements, nil
}

// UpdateImplement merges the present patch fields into the stored implement.
func (s *MongoStore) UpdateImplement(ctx context.Context, id string, patch models.ImplementPatch) (*models.Implement, error) {
	i, err := s.FindImplementByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return i, nil
	}
	patch.Apply(i)

	res, err := s.implements.ReplaceOne(ctx, bson.M{"_id": id}, i)
	if err != nil {
		return nil, fmt.Errorf("failed to update implement: %w", translateMongoError(err))
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return i, nil
}

// DeleteImplement removes an implement that nothing references.
func (s *MongoStore) DeleteImplement(ctx context.Context, id string) error {
	return s.deleteUnreferenced(ctx, s.implements, id, "implement_id", s.operations)
}

// CountImplements counts registered implements
func (s *MongoStore) CountImplements(ctx context.Context) (int, error) {
	return countDocuments(ctx, s.implements, bson.M{})
}

// deleteUnreferenced deletes the document unless any of referrers holds
// field == id, checked and deleted in one transaction.
func (s *MongoStore) deleteUnreferenced(ctx context.Context, coll *mongo.Collection, id, field string, referrers ...*mongo.Collection) error {
	return s.transaction(ctx, func(sc mongo.SessionContext) error {
		for _, ref := range referrers {
			n, err := ref.CountDocuments(sc, bson.M{field: id}, options.Count().SetLimit(1))
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: %s", ErrReferenced, ref.Name())
			}
		}
		res, err := coll.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", coll.Name(), err)
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}
