package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BSON datetimes hold milliseconds.
const mongoTimeResolution = time.Millisecond

func bsonTime(t time.Time) time.Time {
	return t.Truncate(mongoTimeResolution)
}

// ConnectMongo connects to MongoDB at uri and verifies the connection.
// Decoded timestamps are returned in the local time zone.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{UseLocalTimeZone: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoStore implements Store on a MongoDB database. Start and stop of an
// operation use multi-document transactions, so the server must run as a
// replica set.
type MongoStore struct {
	client     *mongo.Client
	users      *mongo.Collection
	tractors   *mongo.Collection
	implements *mongo.Collection
	operations *mongo.Collection
	telemetry  *mongo.Collection
	fuelLogs   *mongo.Collection
	alerts     *mongo.Collection
}

// NewMongoStore binds the store to the named database.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	d := client.Database(database)
	return &MongoStore{
		client:     client,
		users:      d.Collection("users"),
		tractors:   d.Collection("tractors"),
		implements: d.Collection("implements"),
		operations: d.Collection("operations"),
		telemetry:  d.Collection("telemetry"),
		fuelLogs:   d.Collection("fuel_logs"),
		alerts:     d.Collection("alerts"),
	}
}

// OpenMongo connects and returns a store for the named database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	log.WithField("database", database).Info("Connected to MongoDB")
	return NewMongoStore(client, database), nil
}

// Migrate creates the unique and lookup indexes the store relies on.
func (s *MongoStore) Migrate(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "phone", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"phone": bson.M{"$type": "string"}}),
			},
		},
		s.tractors: {
			{Keys: bson.D{{Key: "registration_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.implements: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.operations: {
			{
				Keys: bson.D{{Key: "tractor_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("one_active_per_tractor").
					SetPartialFilterExpression(bson.M{"status": "active"}),
			},
			{Keys: bson.D{{Key: "start_time", Value: -1}}},
		},
		s.telemetry: {
			{
				Keys:    bson.D{{Key: "operation_id", Value: 1}, {Key: "tractor_id", Value: 1}, {Key: "timestamp", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		s.fuelLogs: {
			{Keys: bson.D{{Key: "tractor_id", Value: 1}, {Key: "timestamp", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.alerts: {
			{
				Keys: bson.D{
					{Key: "tractor_id", Value: 1}, {Key: "operation_id", Value: 1},
					{Key: "alert_type", Value: 1}, {Key: "timestamp", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for coll, specs := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// TimeResolution reports that timestamps are stored at millisecond resolution.
func (s *MongoStore) TimeResolution() time.Duration {
	return mongoTimeResolution
}

// Ping verifies the database is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// transaction runs fn in a multi-document transaction
func (s *MongoStore) transaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// translateMongoError maps driver errors to store sentinels.
func translateMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

// findOne decodes the first document matching filter into out.
func findOne(ctx context.Context, coll *mongo.Collection, filter any, out any) error {
	return translateMongoError(coll.FindOne(ctx, filter).Decode(out))
}

// exists reports whether a document with the given _id exists.
func exists(ctx context.Context, coll *mongo.Collection, id string) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// requireRefs fails with ErrInvalidReference when any referenced id is missing.
func requireRefs(ctx context.Context, refs map[*mongo.Collection]string) error {
	for coll, id := range refs {
		ok, err := exists(ctx, coll, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrInvalidReference, coll.Name(), id)
		}
	}
	return nil
}

// findAll runs a find and decodes every document into out.
func findAll(ctx context.Context, coll *mongo.Collection, filter any, out any, opts ...*options.FindOptions) error {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// aggregateAll runs a pipeline and decodes every document into out.
func aggregateAll(ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, out any) error {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// lookupOne joins a single document from another collection by id and
// unwinds it, keeping rows whose reference is missing.
func lookupOne(from, localField, as string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: from},
			{Key: "localField", Value: localField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: as},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$" + as},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func countDocuments(ctx context.Context, coll *mongo.Collection, filter any) (int, error) {
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
