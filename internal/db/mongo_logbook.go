package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestTimestamp = options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

// appendOnce inserts doc and, on a natural-key collision, decodes the
// existing document matching key into out instead.
func appendOnce(ctx context.Context, coll *mongo.Collection, doc any, key bson.M, out any) (bool, error) {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return false, err
		}
		if err := findOne(ctx, coll, key, out); err != nil {
			return false, fmt.Errorf("failed to load existing %s: %w", coll.Name(), err)
		}
		return false, nil
	}
	return true, nil
}

// InsertTelemetry inserts a telemetry sample, or returns the sample already
// stored under the same (operation, tractor, timestamp).
func (s *MongoStore) InsertTelemetry(ctx context.Context, telemetry models.Telemetry) (*models.Telemetry, bool, error) {
	telemetry.Timestamp = bsonTime(telemetry.Timestamp)
	if err := requireRefs(ctx, map[*mongo.Collection]string{
		s.operations: telemetry.OperationID,
		s.tractors:   telemetry.TractorID,
	}); err != nil {
		return nil, false, err
	}

	stored := telemetry
	key := bson.M{"operation_id": telemetry.OperationID, "tractor_id": telemetry.TractorID, "timestamp": telemetry.Timestamp}
	created, err := appendOnce(ctx, s.telemetry, telemetry, key, &stored)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert telemetry: %w", err)
	}
	return &stored, created, nil
}

// FindTelemetryByOperation lists an operation's samples, newest first
func (s *MongoStore) FindTelemetryByOperation(ctx context.Context, operationID string) ([]models.Telemetry, error) {
	samples := []models.Telemetry{}
	if err := findAll(ctx, s.telemetry, bson.M{"operation_id": operationID}, &samples, newestTimestamp); err != nil {
		return nil, fmt.Errorf("failed to list telemetry: %w", err)
	}
	return samples, nil
}

// InsertFuelLog inserts a fuel log, or returns the log already stored under
// the same (tractor, timestamp).
func (s *MongoStore) InsertFuelLog(ctx context.Context, fuelLog models.FuelLog) (*models.FuelLog, bool, error) {
	fuelLog.Timestamp = bsonTime(fuelLog.Timestamp)
	refs := map[*mongo.Collection]string{s.tractors: fuelLog.TractorID, s.users: fuelLog.OperatorID}
	if fuelLog.OperationID != nil {
		refs[s.operations] = *fuelLog.OperationID
	}
	if err := requireRefs(ctx, refs); err != nil {
		return nil, false, err
	}

	stored := fuelLog
	key := bson.M{"tractor_id": fuelLog.TractorID, "timestamp": fuelLog.Timestamp}
	created, err := appendOnce(ctx, s.fuelLogs, fuelLog, key, &stored)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert fuel log: %w", err)
	}
	return &stored, created, nil
}

type fuelLogJoin struct {
	models.FuelLog `bson:",inline"`
	Tractor        *models.Tractor `bson:"tractor,omitempty"`
	Operator       *models.User    `bson:"operator,omitempty"`
}

func (s *MongoStore) findFuelLogJoins(ctx context.Context, match bson.M) ([]fuelLogJoin, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
	}
	pipeline = append(pipeline, lookupOne("tractors", "tractor_id", "tractor")...)
	pipeline = append(pipeline, lookupOne("users", "operator_id", "operator")...)

	var joined []fuelLogJoin
	if err := aggregateAll(ctx, s.fuelLogs, pipeline, &joined); err != nil {
		return nil, err
	}
	return joined, nil
}

// FindFuelLogDetails lists fuel logs with tractor and operator, newest first
func (s *MongoStore) FindFuelLogDetails(ctx context.Context) ([]models.FuelLogDetail, error) {
	joined, err := s.findFuelLogJoins(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list fuel logs: %w", err)
	}
	details := make([]models.FuelLogDetail, 0, len(joined))
	for _, j := range joined {
		d := models.FuelLogDetail{FuelLog: j.FuelLog}
		if j.Tractor != nil {
			d.Tractor = &models.TractorRef{
				ID: j.Tractor.ID, RegistrationNumber: j.Tractor.RegistrationNumber,
				ManufacturerName: j.Tractor.ManufacturerName, Model: j.Tractor.Model,
			}
		}
		if j.Operator != nil {
			d.Operator = &models.OperatorRef{FullName: j.Operator.FullName}
		}
		details = append(details, d)
	}
	return details, nil
}

// FindFuelSpans returns fuel logs timestamped in [start, end], newest first.
func (s *MongoStore) FindFuelSpans(ctx context.Context, start, end time.Time) ([]models.FuelSpan, error) {
	joined, err := s.findFuelLogJoins(ctx, bson.M{"timestamp": bson.M{"$gte": start, "$lte": end}})
	if err != nil {
		return nil, fmt.Errorf("failed to query fuel logs: %w", err)
	}
	spans := make([]models.FuelSpan, 0, len(joined))
	for _, j := range joined {
		sp := models.FuelSpan{ID: j.ID, Quantity: j.Quantity, Timestamp: j.Timestamp}
		if j.Tractor != nil {
			reg := j.Tractor.RegistrationNumber
			sp.RegistrationNumber = &reg
		}
		spans = append(spans, sp)
	}
	return spans, nil
}

// SumFuel totals fuel quantities in [start, end)
func (s *MongoStore) SumFuel(ctx context.Context, start, end time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": start, "$lt": end}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
	}
	var out []struct {
		Total float64 `bson:"total"`
	}
	if err := aggregateAll(ctx, s.fuelLogs, pipeline, &out); err != nil {
		return 0, fmt.Errorf("failed to sum fuel: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}

// InsertAlert inserts an alert, or returns the alert already stored under the
// same (tractor, operation, type, timestamp). A null operation matches null.
func (s *MongoStore) InsertAlert(ctx context.Context, alert models.Alert) (*models.Alert, bool, error) {
	alert.Timestamp = bsonTime(alert.Timestamp)
	refs := map[*mongo.Collection]string{s.tractors: alert.TractorID}
	if alert.OperationID != nil {
		refs[s.operations] = *alert.OperationID
	}
	if err := requireRefs(ctx, refs); err != nil {
		return nil, false, err
	}

	var operationKey any
	if alert.OperationID != nil {
		operationKey = *alert.OperationID
	}
	stored := alert
	key := bson.M{
		"tractor_id": alert.TractorID, "operation_id": operationKey,
		"alert_type": alert.AlertType, "timestamp": alert.Timestamp,
	}
	created, err := appendOnce(ctx, s.alerts, alert, key, &stored)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return &stored, created, nil
}

// ResolveAlert marks an alert resolved
func (s *MongoStore) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	var a models.Alert
	err := s.alerts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_resolved": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		return nil, translateMongoError(err)
	}
	return &a, nil
}

// FindAlertDetails lists alerts with their tractor, newest first
func (s *MongoStore) FindAlertDetails(ctx context.Context) ([]models.AlertDetail, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: -1}}}},
	}
	pipeline = append(pipeline, lookupOne("tractors", "tractor_id", "tractor")...)

	var joined []struct {
		models.Alert `bson:",inline"`
		Tractor      *models.Tractor `bson:"tractor,omitempty"`
	}
	if err := aggregateAll(ctx, s.alerts, pipeline, &joined); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	details := make([]models.AlertDetail, 0, len(joined))
	for _, j := range joined {
		d := models.AlertDetail{Alert: j.Alert}
		if j.Tractor != nil {
			d.Tractor = &models.TractorRef{ID: j.Tractor.ID, ManufacturerName: j.Tractor.ManufacturerName, Model: j.Tractor.Model}
		}
		details = append(details, d)
	}
	return details, nil
}

// FindAlertsBetween returns alerts timestamped in [start, end], newest first.
func (s *MongoStore) FindAlertsBetween(ctx context.Context, start, end time.Time) ([]models.Alert, error) {
	alerts := []models.Alert{}
	filter := bson.M{"timestamp": bson.M{"$gte": start, "$lte": end}}
	if err := findAll(ctx, s.alerts, filter, &alerts, newestTimestamp); err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	return alerts, nil
}

// CountUnresolvedAlerts counts alerts not yet resolved
func (s *MongoStore) CountUnresolvedAlerts(ctx context.Context) (int, error) {
	return countDocuments(ctx, s.alerts, bson.M{"is_resolved": false})
}
