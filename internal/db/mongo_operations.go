package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// operationJoin is an operation document after the tractor, implement and
// operator lookups.
type operationJoin struct {
	models.Operation `bson:",inline"`
	Tractor          *models.Tractor   `bson:"tractor,omitempty"`
	Implement        *models.Implement `bson:"implement,omitempty"`
	Operator         *models.User      `bson:"operator,omitempty"`
}

func (j operationJoin) detail() models.OperationDetail {
	d := models.OperationDetail{Operation: j.Operation}
	if j.Tractor != nil {
		d.Tractor = &models.TractorRef{
			ID: j.Tractor.ID, ManufacturerName: j.Tractor.ManufacturerName,
			Model: j.Tractor.Model, RegistrationNumber: j.Tractor.RegistrationNumber,
		}
	}
	if j.Implement != nil {
		d.Implement = &models.ImplementRef{
			ID: j.Implement.ID, Name: j.Implement.Name,
			BrandName: j.Implement.BrandName, WorkingWidth: j.Implement.WorkingWidth,
		}
	}
	if j.Operator != nil {
		d.Operator = &models.OperatorRef{FullName: j.Operator.FullName}
	}
	return d
}

func operationJoinPipeline(match bson.M, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "start_time", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline, lookupOne("tractors", "tractor_id", "tractor")...)
	pipeline = append(pipeline, lookupOne("implements", "implement_id", "implement")...)
	pipeline = append(pipeline, lookupOne("users", "operator_id", "operator")...)
	return pipeline
}

// StartOperation records a new active operation and its opening telemetry in
// one transaction.
func (s *MongoStore) StartOperation(ctx context.Context, op models.Operation, opening models.Telemetry) error {
	op.StartTime = bsonTime(op.StartTime)
	op.CreatedAt = bsonTime(op.CreatedAt)
	opening.Timestamp = bsonTime(opening.Timestamp)
	err := s.transaction(ctx, func(sc mongo.SessionContext) error {
		var existing models.Operation
		err := findOne(sc, s.operations, bson.M{"tractor_id": op.TractorID, "status": models.StatusActive}, &existing)
		if err == nil {
			return ErrActiveOperation
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to check active operation: %w", err)
		}

		if err := requireRefs(sc, map[*mongo.Collection]string{
			s.tractors:   op.TractorID,
			s.implements: op.ImplementID,
			s.users:      op.OperatorID,
		}); err != nil {
			return err
		}

		if _, err := s.operations.InsertOne(sc, op); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrActiveOperation
			}
			return fmt.Errorf("failed to insert operation: %w", err)
		}
		if _, err := s.telemetry.InsertOne(sc, opening); err != nil {
			return fmt.Errorf("failed to insert opening telemetry: %w", translateMongoError(err))
		}
		return nil
	})
	return err
}

// StopOperation completes an active operation and records its closing
// telemetry. Write errors abort a Mongo transaction, so an existing closing
// sample is detected by lookup rather than by a failed insert.
func (s *MongoStore) StopOperation(ctx context.Context, id string, end time.Time, closing models.Telemetry) (*models.Operation, error) {
	end = bsonTime(end)
	closing.Timestamp = bsonTime(closing.Timestamp)
	var stopped *models.Operation
	err := s.transaction(ctx, func(sc mongo.SessionContext) error {
		var op models.Operation
		if err := findOne(sc, s.operations, bson.M{"_id": id}, &op); err != nil {
			return err
		}
		if op.Status != models.StatusActive {
			return ErrOperationNotActive
		}

		res, err := s.operations.UpdateOne(sc,
			bson.M{"_id": id, "status": models.StatusActive},
			bson.M{"$set": bson.M{"status": models.StatusCompleted, "end_time": end}},
		)
		if err != nil {
			return fmt.Errorf("failed to stop operation: %w", err)
		}
		if res.ModifiedCount == 0 {
			return ErrOperationNotActive
		}

		closing.OperationID = op.ID
		closing.TractorID = op.TractorID
		n, err := s.telemetry.CountDocuments(sc, bson.M{
			"operation_id": closing.OperationID, "tractor_id": closing.TractorID, "timestamp": closing.Timestamp,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := s.telemetry.InsertOne(sc, closing); err != nil {
				return fmt.Errorf("failed to insert closing telemetry: %w", err)
			}
		}

		op.Status = models.StatusCompleted
		op.EndTime = &end
		stopped = &op
		return nil
	})
	return stopped, err
}

// FindOperationByID finds an operation by ID
func (s *MongoStore) FindOperationByID(ctx context.Context, id string) (*models.Operation, error) {
	var op models.Operation
	if err := findOne(ctx, s.operations, bson.M{"_id": id}, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// FindActiveOperation returns the active operation of a tractor, if any.
func (s *MongoStore) FindActiveOperation(ctx context.Context, tractorID string) (*models.Operation, error) {
	var op models.Operation
	if err := findOne(ctx, s.operations, bson.M{"tractor_id": tractorID, "status": models.StatusActive}, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// FindOperationDetail returns one operation with its joined projections.
func (s *MongoStore) FindOperationDetail(ctx context.Context, id string) (*models.OperationDetail, error) {
	var joined []operationJoin
	if err := aggregateAll(ctx, s.operations, operationJoinPipeline(bson.M{"_id": id}, 1), &joined); err != nil {
		return nil, fmt.Errorf("failed to find operation: %w", err)
	}
	if len(joined) == 0 {
		return nil, ErrNotFound
	}
	d := joined[0].detail()
	return &d, nil
}

// FindOperationDetails lists operations with joined projections, newest start first.
func (s *MongoStore) FindOperationDetails(ctx context.Context) ([]models.OperationDetail, error) {
	var joined []operationJoin
	if err := aggregateAll(ctx, s.operations, operationJoinPipeline(bson.M{}, 0), &joined); err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	details := make([]models.OperationDetail, 0, len(joined))
	for _, j := range joined {
		details = append(details, j.detail())
	}
	return details, nil
}

// FindRecentOperations returns the most recently started operations.
func (s *MongoStore) FindRecentOperations(ctx context.Context, limit int) ([]models.RecentOperation, error) {
	var joined []operationJoin
	if err := aggregateAll(ctx, s.operations, operationJoinPipeline(bson.M{}, limit), &joined); err != nil {
		return nil, fmt.Errorf("failed to list recent operations: %w", err)
	}
	recent := make([]models.RecentOperation, 0, len(joined))
	for _, j := range joined {
		if j.Tractor == nil || j.Operator == nil {
			continue
		}
		recent = append(recent, models.RecentOperation{
			ID:            j.ID,
			OperationType: j.OperationType,
			TractorName:   j.Tractor.DisplayName(),
			OperatorName:  j.Operator.FullName,
			Status:        j.Status,
			StartTime:     j.StartTime,
		})
	}
	return recent, nil
}

// FindOperationSpans returns operations whose start time lies in [start, end].
func (s *MongoStore) FindOperationSpans(ctx context.Context, start, end time.Time) ([]models.OperationSpan, error) {
	match := bson.M{"start_time": bson.M{"$gte": start, "$lte": end}}
	var joined []operationJoin
	if err := aggregateAll(ctx, s.operations, operationJoinPipeline(match, 0), &joined); err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	spans := make([]models.OperationSpan, 0, len(joined))
	for _, j := range joined {
		if j.Tractor == nil || j.Implement == nil || j.Operator == nil {
			continue
		}
		spans = append(spans, models.OperationSpan{
			ID:            j.ID,
			OperationType: j.OperationType,
			TractorName:   j.Tractor.DisplayName(),
			OperatorName:  j.Operator.FullName,
			StartTime:     j.StartTime,
			EndTime:       j.EndTime,
			WorkingWidth:  j.Implement.WorkingWidth,
		})
	}
	return spans, nil
}

// CountActiveOperations counts operations in the active state
func (s *MongoStore) CountActiveOperations(ctx context.Context) (int, error) {
	return countDocuments(ctx, s.operations, bson.M{"status": models.StatusActive})
}
