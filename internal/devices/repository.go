package devices

import (
	"context"
	"time"

	"github.com/veripass/veripass/backend/reader-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeviceRepository defines persistence operations for enrolled readers.
type DeviceRepository interface {
	UpsertByDeviceID(ctx context.Context, d *models.Device) (*models.Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	TouchLastSeen(ctx context.Context, deviceID string) error
	List(ctx context.Context) ([]*models.Device, error)
}

// MongoDeviceRepository implements DeviceRepository using MongoDB.
type MongoDeviceRepository struct {
	col *mongo.Collection
}

func NewMongoDeviceRepository(col *mongo.Collection) *MongoDeviceRepository {
	return &MongoDeviceRepository{col: col}
}

func (r *MongoDeviceRepository) UpsertByDeviceID(ctx context.Context, d *models.Device) (*models.Device, error) {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	filter := bson.M{"deviceId": d.DeviceID}
	repl := bson.M{"$set": bson.M{
		"label":     d.Label,
		"location":  d.Location,
		"model":     d.Model,
		"lastSeen":  now,
		"updatedAt": d.UpdatedAt,
		"createdAt": d.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.Device
	if err := r.col.FindOneAndUpdate(ctx, filter, repl, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return d, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoDeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	var d models.Device
	if err := r.col.FindOne(ctx, bson.M{"deviceId": deviceID}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *MongoDeviceRepository) TouchLastSeen(ctx context.Context, deviceID string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"deviceId": deviceID},
		bson.M{"$set": bson.M{"lastSeen": time.Now().UTC()}})
	return err
}

func (r *MongoDeviceRepository) List(ctx context.Context) ([]*models.Device, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*models.Device{}
	for cur.Next(ctx) {
		var d models.Device
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}
