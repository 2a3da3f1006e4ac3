package service

import (
	"errors"
	"time"

	"github.com/veripass/veripass/backend/reader-services/internal/readings"
	"github.com/veripass/veripass/backend/reader-services/internal/readings/repository"
	"github.com/veripass/veripass/backend/reader-services/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("not found")
)

// Service defines the reading-log operations used by the handler layer.
type Service interface {
	Record(r *readings.Reading) (string, error)
	Get(id string) (*readings.Reading, error)
	List(f readings.Filter) ([]*readings.Reading, error)
	AttachArtifact(id, key string) error
	Stats(f readings.Filter) (*readings.Stats, error)
}

type repo interface {
	Create(r *readings.Reading) (string, error)
	Get(id string) (*readings.Reading, error)
	List(f readings.Filter) ([]*readings.Reading, error)
	AttachArtifact(id, key string) error
	Stats(f readings.Filter) (*readings.Stats, error)
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return &readingService{repo: repository.NewMemoryRepo()}
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller owns the client and collection lifecycle.
func NewMongoService(col *mongo.Collection) Service {
	return &readingService{repo: repository.NewMongoRepo(col)}
}

type readingService struct {
	repo repo
}

func (s *readingService) Record(r *readings.Reading) (string, error) {
	id, err := s.repo.Create(r)
	if err != nil {
		return "", err
	}
	metrics.ReadingsTotal.WithLabelValues(string(r.Outcome), r.Protocol).Inc()
	if r.Outcome == readings.OutcomeFailure && r.FailureCategory != "" {
		metrics.ReadingFailures.WithLabelValues(r.FailureCategory).Inc()
	}
	if r.DurationMs > 0 {
		metrics.ReadingDuration.Observe(time.Duration(r.DurationMs * int64(time.Millisecond)).Seconds())
	}
	return id, nil
}

func (s *readingService) Get(id string) (*readings.Reading, error) {
	r, err := s.repo.Get(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *readingService) List(f readings.Filter) ([]*readings.Reading, error) {
	return s.repo.List(f)
}

func (s *readingService) AttachArtifact(id, key string) error {
	if err := s.repo.AttachArtifact(id, key); err != nil {
		return ErrNotFound
	}
	return nil
}

func (s *readingService) Stats(f readings.Filter) (*readings.Stats, error) {
	return s.repo.Stats(f)
}
