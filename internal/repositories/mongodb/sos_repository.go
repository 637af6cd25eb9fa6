package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sosline/internal/models"
	"sosline/internal/repositories/interfaces"
	"sosline/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SOSCollection = "sos_events"

type sosRepository struct {
	collection *mongo.Collection
}

func NewSOSRepository(db *mongo.Database) interfaces.SOSRepository {
	return &sosRepository{
		collection: db.Collection(SOSCollection),
	}
}

func (r *sosRepository) Create(ctx context.Context, event *models.SOSEvent) error {
	event.ID = primitive.NewObjectID()
	event.CreatedAt = time.Now().UTC()
	event.Active = true

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to create sos event: %w", err)
	}

	return nil
}

func (r *sosRepository) FindActive(ctx context.Context) ([]*models.SOSEvent, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find active sos events: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeEvents(ctx, cursor)
}

func (r *sosRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SOSEvent, error) {
	var event models.SOSEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sos event: %w", err)
	}

	return &event, nil
}

// SetCanceled relies on the {_id, active: true} filter of a single
// FindOneAndUpdate, which Mongo applies atomically per document.
func (r *sosRepository) SetCanceled(ctx context.Context, id primitive.ObjectID, canceledBy string) (*models.SOSEvent, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"active":      false,
		"canceled_at": now,
		"canceled_by": canceledBy,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var event models.SOSEvent
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "active": true}, update, opts).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to cancel sos event: %w", err)
	}

	return &event, nil
}

func (r *sosRepository) FindPage(ctx context.Context, page, size int) ([]*models.SOSEvent, int64, error) {
	params := &utils.PaginationParams{
		Page:     page,
		PageSize: size,
		Sort:     "created_at",
		Order:    "desc",
	}
	params.Normalize()

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sos events: %w", err)
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find sos events: %w", err)
	}
	defer cursor.Close(ctx)

	events, err := decodeEvents(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func decodeEvents(ctx context.Context, cursor *mongo.Cursor) ([]*models.SOSEvent, error) {
	events := make([]*models.SOSEvent, 0)
	for cursor.Next(ctx) {
		var event models.SOSEvent
		if err := cursor.Decode(&event); err != nil {
			return nil, fmt.Errorf("failed to decode sos event: %w", err)
		}
		events = append(events, &event)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("sos event cursor failed: %w", err)
	}

	return events, nil
}
