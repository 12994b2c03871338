// Package store persists ESDL documents. Backends deal in encoded bytes keyed
// by system id; LoadSystem and SaveSystem add the codec on top.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/esdl"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/metrics"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

var (
	// ErrDocumentNotFound is returned by Get for unknown ids. It matches model.ErrNotFound.
	ErrDocumentNotFound = fmt.Errorf("document %w", model.ErrNotFound)
	// ErrInvalidID is returned for ids that cannot be used as a key
	ErrInvalidID = errors.New("invalid document id")
)

// DocumentStore is a key/value store for encoded energy systems
type DocumentStore interface {
	// Get returns the document bytes or ErrDocumentNotFound
	Get(ctx context.Context, id string) ([]byte, error)
	// Put creates or replaces a document
	Put(ctx context.Context, id string, data []byte) error
	// Delete removes a document; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error
	// List returns the stored ids in sorted order
	List(ctx context.Context) ([]string, error)
	// Backend names the implementation for logs and metrics
	Backend() string
	Close() error
}

func checkID(id string) error {
	if err := validation.ValidateID("id", id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return nil
}

// LoadSystem fetches and decodes one energy system
func LoadSystem(ctx context.Context, docs DocumentStore, id string) (*model.EnergySystem, error) {
	data, err := docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	es, err := esdl.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	return es, nil
}

// SaveSystem encodes and stores one energy system
func SaveSystem(ctx context.Context, docs DocumentStore, id string, es *model.EnergySystem) error {
	data, err := esdl.Marshal(es)
	if err != nil {
		return fmt.Errorf("document %s: %w", id, err)
	}
	return docs.Put(ctx, id, data)
}

// Pinger is implemented by stores with a cheaper liveness probe than List
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping probes docs, falling back to a List when it has no Ping of its own
func Ping(ctx context.Context, docs DocumentStore) error {
	if p, ok := docs.(Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := docs.List(ctx)
	return err
}

// Instrumented wraps a store with metrics and debug logging
type Instrumented struct {
	inner   DocumentStore
	metrics *metrics.Registry
	logger  logging.Logger
}

// Instrument decorates docs. A nil registry or logger disables that part.
func Instrument(docs DocumentStore, reg *metrics.Registry, logger logging.Logger) *Instrumented {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Instrumented{
		inner:   docs,
		metrics: reg,
		logger:  logger.With(logging.Component("store"), logging.Backend(docs.Backend())),
	}
}

func (s *Instrumented) record(op, id string, size int, start time.Time, err error) {
	elapsed := time.Since(start)
	status := metrics.StatusOK
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		status = "not_found"
	case err != nil:
		status = metrics.StatusError
		s.logger.Error("store operation failed", logging.String("operation", op), logging.SystemID(id), logging.Error(err))
	default:
		s.logger.Debug("store operation", logging.String("operation", op), logging.SystemID(id), logging.Int("bytes", size), logging.Latency(elapsed))
	}
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(s.inner.Backend(), op, status, size, elapsed)
	}
}

func (s *Instrumented) Get(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	data, err := s.inner.Get(ctx, id)
	s.record("get", id, len(data), start, err)
	return data, err
}

func (s *Instrumented) Put(ctx context.Context, id string, data []byte) error {
	start := time.Now()
	err := s.inner.Put(ctx, id, data)
	s.record("put", id, len(data), start, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, id)
	s.record("delete", id, 0, start, err)
	return err
}

func (s *Instrumented) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := s.inner.List(ctx)
	s.record("list", "", 0, start, err)
	return ids, err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := Ping(ctx, s.inner)
	s.record("ping", "", 0, start, err)
	return err
}

func (s *Instrumented) Backend() string { return s.inner.Backend() }

func (s *Instrumented) Close() error { return s.inner.Close() }
