package registry

import (
	"context"
	"sync"
	"time"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	domain "github.com/gridmind/gridmind-go/internal/domain/version"
)

// VersionRegistry is the contract the orchestrator depends on.
type VersionRegistry interface {
	Backup(ctx context.Context, state []byte, metadata domain.Metadata) (int64, error)
	Get(ctx context.Context, version int64) (*domain.ModelVersion, error)
	Latest(ctx context.Context) (*domain.ModelVersion, error)
	List(ctx context.Context) ([]domain.ModelVersion, error)
	Close() error
}

var (
	_ VersionRegistry = (*SQLiteRegistry)(nil)
	_ VersionRegistry = (*InMemoryRegistry)(nil)
)

// InMemoryRegistry implements VersionRegistry without persistence.
type InMemoryRegistry struct {
	mu        sync.Mutex
	versions  []domain.ModelVersion
	next      int64
	retention int
	closed    bool
}

// NewInMemoryRegistry creates a new in-memory registry.
func NewInMemoryRegistry(retention int) *InMemoryRegistry {
	if retention <= 0 {
		retention = 20
	}
	return &InMemoryRegistry{next: 1, retention: retention}
}

// Backup stores a snapshot copy and returns its version handle.
func (r *InMemoryRegistry) Backup(ctx context.Context, state []byte, metadata domain.Metadata) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, domain.ErrStoreClosed
	}

	stateCopy := make([]byte, len(state))
	copy(stateCopy, state)

	version := r.next
	r.next++

	r.versions = append(r.versions, domain.ModelVersion{
		Version:   version,
		State:     stateCopy,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	})

	if len(r.versions) > r.retention {
		r.versions = r.versions[len(r.versions)-r.retention:]
	}

	return version, nil
}

// Get returns a stored version.
func (r *InMemoryRegistry) Get(ctx context.Context, version int64) (*domain.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrStoreClosed
	}

	for i := range r.versions {
		if r.versions[i].Version == version {
			copied := r.versions[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrVersionNotFound
}

// Latest returns the most recent version.
func (r *InMemoryRegistry) Latest(ctx context.Context) (*domain.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrStoreClosed
	}

	if len(r.versions) == 0 {
		return nil, domain.ErrNoVersions
	}
	copied := r.versions[len(r.versions)-1]
	return &copied, nil
}

// List returns all retained versions, newest first.
func (r *InMemoryRegistry) List(ctx context.Context) ([]domain.ModelVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrStoreClosed
	}

	out := make([]domain.ModelVersion, 0, len(r.versions))
	for i := len(r.versions) - 1; i >= 0; i-- {
		out = append(out, r.versions[i])
	}
	return out, nil
}

// Close closes the registry.
func (r *InMemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Restore applies a stored snapshot to a model. Operator-triggered recovery
// to an arbitrary retained version goes through this path.
func Restore(ctx context.Context, registry VersionRegistry, model learning.TrainableModel, version int64) error {
	stored, err := registry.Get(ctx, version)
	if err != nil {
		return err
	}
	return model.Restore(stored.State)
}
