package state

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var ErrNotFound = errors.New("state: snapshot not found")

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted snapshot of one provider in one domain.
type Ref struct {
	Domain string
	Name   string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Persister orchestrates loads and guarded saves against a Store.
type Persister[T any] struct {
	Store Store[T]
}

type Mutator[T any] func(*T) error

// Identifier returns the canonical storage key, domain/name.
func (r Ref) Identifier() (string, error) {
	domain := strings.TrimSpace(r.Domain)
	name := strings.TrimSpace(r.Name)
	if domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	if name == "" {
		return "", fmt.Errorf("state: name is required for domain %q", domain)
	}
	if strings.Contains(domain, "/") || strings.Contains(name, "/") {
		return "", fmt.Errorf("state: ref %q/%q must not contain '/'", domain, name)
	}
	return domain + "/" + name, nil
}

// Restore loads the snapshot for ref. A missing snapshot is reported with
// ErrNotFound.
func (p Persister[T]) Restore(ctx context.Context, ref Ref) (T, Meta, error) {
	var zero T
	if p.Store == nil {
		return zero, Meta{}, fmt.Errorf("state: store is required")
	}
	snapshot, meta, ok, err := p.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q/%q: %w", ref.Domain, ref.Name, err)
	}
	if !ok {
		return zero, Meta{}, fmt.Errorf("%w: %q/%q", ErrNotFound, ref.Domain, ref.Name)
	}
	return snapshot, meta, nil
}

// Save writes snapshot under ref. When meta carries an ETag it must match the
// stored one.
func (p Persister[T]) Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	return p.Mutate(ctx, ref, meta, func(current *T) error {
		*current = snapshot
		return nil
	})
}

// Mutate loads one snapshot, applies fn, validates, then saves.
func (p Persister[T]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[T]) (Meta, error) {
	if p.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, err
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := p.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q/%q: %w", ref.Domain, ref.Name, err)
	}
	if !ok {
		var zero T
		snapshot = zero
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return loadedMeta, err
	}
	if err := validate(snapshot); err != nil {
		return loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	if saveMeta.UpdatedAt.IsZero() {
		saveMeta.UpdatedAt = time.Now().UTC()
	}
	savedMeta, err := p.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return loadedMeta, fmt.Errorf("state: save %q/%q: %w", ref.Domain, ref.Name, err)
	}
	return savedMeta, nil
}

func validate[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if rv := reflect.ValueOf(&value).Elem(); rv.Kind() != reflect.Pointer {
		if v, ok := rv.Addr().Interface().(interface{ Validate() error }); ok {
			return v.Validate()
		}
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
