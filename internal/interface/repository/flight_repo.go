package repository

import (
	"context"
	"fmt"
	"time"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"
	"dispatchboard-service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFlightRepository implements FlightRepository
type MongoFlightRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoFlightRepository creates a new flight repository
func NewMongoFlightRepository(db *mongo.Database, logger logger.Logger) repository.FlightRepository {
	collection := db.Collection("flights")

	// Index on order and date for the snapshot sort
	ctx := context.Background()
	orderIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "order", Value: 1},
			{Key: "date", Value: 1},
		},
	}
	collection.Indexes().CreateOne(ctx, orderIndex)

	return &MongoFlightRepository{
		collection: collection,
		logger:     logger,
	}
}

// Create inserts a flight and returns it as stored. The id and creation
// instant are assigned at the store boundary, never by the caller.
func (r *MongoFlightRepository) Create(ctx context.Context, flight *entity.Flight) (*entity.Flight, error) {
	doc := flight.Clone()
	doc.ID = primitive.NewObjectID().Hex()
	doc.Date = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert flight: %w", err)
	}
	return doc, nil
}

// Update applies a partial update to the named fields only
func (r *MongoFlightRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{}
	for key, value := range fields {
		set[key] = value
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update flight %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update flight %s: no such document", id)
	}
	return nil
}

// Delete removes a flight by id
func (r *MongoFlightRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete flight %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete flight %s: no such document", id)
	}
	return nil
}

// Watch opens a change stream on the flights collection and emits a full
// snapshot on open and after every change. The stream is released when ctx
// is cancelled.
func (r *MongoFlightRepository) Watch(ctx context.Context) (<-chan []*entity.Flight, <-chan error, error) {
	stream, err := r.collection.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, nil, fmt.Errorf("watch flights: %w", err)
	}
	r.logger.Info("Flight change stream opened")

	snapshots := make(chan []*entity.Flight, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(snapshots)
		defer close(errs)
		defer stream.Close(context.Background())

		if !r.emitSnapshot(ctx, snapshots, errs) {
			return
		}

		for stream.Next(ctx) {
			if !r.emitSnapshot(ctx, snapshots, errs) {
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return snapshots, errs, nil
}

// emitSnapshot sends the current flight set; returns false when the watch
// should stop.
func (r *MongoFlightRepository) emitSnapshot(ctx context.Context, snapshots chan<- []*entity.Flight, errs chan<- error) bool {
	flights, err := r.list(ctx)
	if err != nil {
		if ctx.Err() == nil {
			errs <- err
		}
		return false
	}

	select {
	case snapshots <- flights:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *MongoFlightRepository) list(ctx context.Context) ([]*entity.Flight, error) {
	sort := options.Find().SetSort(bson.D{
		{Key: "order", Value: 1},
		{Key: "date", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{}, sort)
	if err != nil {
		return nil, fmt.Errorf("list flights: %w", err)
	}
	defer cursor.Close(ctx)

	var flights []*entity.Flight
	if err := cursor.All(ctx, &flights); err != nil {
		return nil, fmt.Errorf("decode flights: %w", err)
	}

	return flights, nil
}
