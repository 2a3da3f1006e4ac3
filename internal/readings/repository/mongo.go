package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/veripass/veripass/backend/reader-services/internal/readings"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo persists readings in a MongoDB collection. IDs are UUID strings
// stored under "id" so records stay portable across backends.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	idxID := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	idxDev := mongo.IndexModel{Keys: bson.D{{Key: "deviceId", Value: 1}, {Key: "createdAt", Value: -1}}}
	col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{idxID, idxDev})
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(r *readings.Reading) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := m.col.InsertOne(context.Background(), bson.M{
		"id":              r.ID,
		"deviceId":        r.DeviceID,
		"documentMasked":  r.DocumentMasked,
		"format":          r.Format,
		"protocol":        r.Protocol,
		"outcome":         r.Outcome,
		"failureCategory": r.FailureCategory,
		"durationMs":      r.DurationMs,
		"artifactKey":     r.ArtifactKey,
		"createdAt":       r.CreatedAt,
		"updatedAt":       r.UpdatedAt,
	}); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (m *MongoRepo) Get(id string) (*readings.Reading, error) {
	var r persisted
	err := m.col.FindOne(context.Background(), bson.M{"id": id}).Decode(&r)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.reading(), nil
}

func (m *MongoRepo) List(f readings.Filter) ([]*readings.Reading, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := m.col.Find(context.Background(), mongoFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())
	out := []*readings.Reading{}
	for cur.Next(context.Background()) {
		var r persisted
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r.reading())
	}
	return out, cur.Err()
}

func (m *MongoRepo) AttachArtifact(id, key string) error {
	res, err := m.col.UpdateOne(context.Background(), bson.M{"id": id},
		bson.M{"$set": bson.M{"artifactKey": key, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Stats(f readings.Filter) (*readings.Stats, error) {
	// Aggregation stays client-side; reading volumes per device are small
	// and the memory backend shares the same code path.
	list, err := m.List(readings.Filter{DeviceID: f.DeviceID, Protocol: f.Protocol, Since: f.Since})
	if err != nil {
		return nil, err
	}
	s := &readings.Stats{ByCategory: map[string]int64{}, ByProtocol: map[string]int64{}}
	for _, r := range list {
		s.Total++
		switch r.Outcome {
		case readings.OutcomeSuccess:
			s.Successes++
		case readings.OutcomeFailure:
			s.Failures++
			if r.FailureCategory != "" {
				s.ByCategory[r.FailureCategory]++
			}
		}
		if r.Protocol != "" {
			s.ByProtocol[r.Protocol]++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Total)
	}
	return s, nil
}

func mongoFilter(f readings.Filter) bson.M {
	q := bson.M{}
	if f.DeviceID != "" {
		q["deviceId"] = f.DeviceID
	}
	if f.Outcome != "" {
		q["outcome"] = f.Outcome
	}
	if f.FailureCategory != "" {
		q["failureCategory"] = f.FailureCategory
	}
	if f.Protocol != "" {
		q["protocol"] = f.Protocol
	}
	if !f.Since.IsZero() {
		q["createdAt"] = bson.M{"$gte": f.Since}
	}
	return q
}

// persisted mirrors the stored shape; "_id" stays with Mongo.
type persisted struct {
	ID              string           `bson:"id"`
	DeviceID        string           `bson:"deviceId"`
	DocumentMasked  string           `bson:"documentMasked"`
	Format          string           `bson:"format"`
	Protocol        string           `bson:"protocol"`
	Outcome         readings.Outcome `bson:"outcome"`
	FailureCategory string           `bson:"failureCategory,omitempty"`
	DurationMs      int64            `bson:"durationMs"`
	ArtifactKey     string           `bson:"artifactKey,omitempty"`
	CreatedAt       time.Time        `bson:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt"`
}

func (p *persisted) reading() *readings.Reading {
	return &readings.Reading{
		ID:              p.ID,
		DeviceID:        p.DeviceID,
		DocumentMasked:  p.DocumentMasked,
		Format:          p.Format,
		Protocol:        p.Protocol,
		Outcome:         p.Outcome,
		FailureCategory: p.FailureCategory,
		DurationMs:      p.DurationMs,
		ArtifactKey:     p.ArtifactKey,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
