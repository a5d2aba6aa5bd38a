// Package services – ResourceService
//
// This file implements ResourceService, the one generic repository used by
// every resource kind. A domain.Kind supplies the table and payload builder;
// the service validates payloads strictly before any write, maps storage
// outcomes to service-level errors, and implements Idempotency-Key replay
// for creates.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/ruser/internal/domain"
	"github.com/tbourn/ruser/internal/repo"
	"github.com/tbourn/ruser/internal/utils"
	"github.com/tbourn/ruser/internal/validation"
)

// RecordRepo defines the repository contract required by ResourceService.
// repo.Records is the production implementation.
type RecordRepo[E any] interface {
	// Insert stores e and writes the assigned id back into it.
	Insert(ctx context.Context, db *gorm.DB, e *E) error

	// List returns every stored record.
	List(ctx context.Context, db *gorm.DB) ([]E, error)

	// ListPage returns a window of records.
	ListPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]E, error)

	// Count returns the number of stored records.
	Count(ctx context.Context, db *gorm.DB) (int64, error)

	// Get fetches a record by id or returns repo.ErrNotFound.
	Get(ctx context.Context, db *gorm.DB, id int64) (*E, error)

	// Stats returns the record count and greatest id.
	Stats(ctx context.Context, db *gorm.DB) (count, maxID int64, err error)
}

// DefaultIdempotencyTTL is how long an Idempotency-Key replays its result.
const DefaultIdempotencyTTL = 24 * time.Hour

// ResourceService provides list, get and create for one resource kind.
type ResourceService[E domain.Entity, P any] struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Kind declares the table and payload builder.
	Kind domain.Kind[E, P]
	// Repo is the record repository used by this service.
	Repo RecordRepo[E]
	// Validator checks payloads before any write.
	Validator *validation.Validator
	// IdempotencyTTL bounds how long a create can be replayed.
	IdempotencyTTL time.Duration

	now func() time.Time
}

// NewResourceService constructs a ResourceService for kind backed by db.
func NewResourceService[E domain.Entity, P any](db *gorm.DB, kind domain.Kind[E, P], v *validation.Validator) *ResourceService[E, P] {
	if v == nil {
		v = validation.New()
	}
	return &ResourceService[E, P]{
		DB:             db,
		Kind:           kind,
		Repo:           repo.Records[E]{Table: kind.Table},
		Validator:      v,
		IdempotencyTTL: DefaultIdempotencyTTL,
		now:            time.Now,
	}
}

func (s *ResourceService[E, P]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tr := otel.Tracer("services/ResourceService")
	attrs = append(attrs, attribute.String("resource.kind", s.Kind.Name))
	return tr.Start(ctx, op, trace.WithAttributes(attrs...))
}

func (s *ResourceService[E, P]) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// fail records err on span and the operation counter and returns it.
func (s *ResourceService[E, P]) fail(span trace.Span, op, outcome string, err error) error {
	observe(s.Kind.Name, op, outcome)
	if outcome == outcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *ResourceService[E, P]) storage(op string, err error) error {
	return &StorageError{Kind: s.Kind.Name, Op: op, Err: err}
}

// List returns every record of the kind, ordered by id ascending.
func (s *ResourceService[E, P]) List(ctx context.Context) ([]E, error) {
	ctx, span := s.start(ctx, "List")
	defer span.End()

	items, err := s.Repo.List(ctx, s.DB)
	if err != nil {
		return nil, s.fail(span, "list", outcomeError, s.storage("list", err))
	}
	span.SetAttributes(attribute.Int("resource.count", len(items)))
	observe(s.Kind.Name, "list", outcomeOK)
	return items, nil
}

// ListPage returns a page of records and the total count.
// It applies defaults for invalid page/pageSize.
func (s *ResourceService[E, P]) ListPage(ctx context.Context, page, pageSize int) ([]E, int64, error) {
	ctx, span := s.start(ctx, "ListPage",
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	)
	defer span.End()

	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	win := utils.Page{Number: page, Size: pageSize}.Clamp()

	total, err := s.Repo.Count(ctx, s.DB)
	if err != nil {
		return nil, 0, s.fail(span, "list", outcomeError, s.storage("count", err))
	}
	if total == 0 || win.Number > win.TotalPages(total) {
		observe(s.Kind.Name, "list", outcomeOK)
		return []E{}, total, nil
	}

	items, err := s.Repo.ListPage(ctx, s.DB, win.Offset(), win.Size)
	if err != nil {
		return nil, 0, s.fail(span, "list", outcomeError, s.storage("list", err))
	}
	observe(s.Kind.Name, "list", outcomeOK)
	return items, total, nil
}

// Get returns the record with id, or ErrNotFound.
func (s *ResourceService[E, P]) Get(ctx context.Context, id int64) (*E, error) {
	ctx, span := s.start(ctx, "Get", attribute.Int64("resource.id", id))
	defer span.End()

	e, err := s.Repo.Get(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, s.fail(span, "get", outcomeNotFound, ErrNotFound)
	}
	if err != nil {
		return nil, s.fail(span, "get", outcomeError, s.storage("get", err))
	}
	observe(s.Kind.Name, "get", outcomeOK)
	return e, nil
}

// Stats returns the record count and greatest id, used for ETags.
func (s *ResourceService[E, P]) Stats(ctx context.Context) (count, maxID int64, err error) {
	ctx, span := s.start(ctx, "Stats")
	defer span.End()

	count, maxID, err = s.Repo.Stats(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return 0, 0, s.storage("stats", err)
	}
	return count, maxID, nil
}

// Create validates p, inserts the built entity and returns it with its
// assigned id. Nothing is written when validation fails.
//
// When idemKey is non-empty the insert and the idempotency record are
// written in one transaction. A repeated key within IdempotencyTTL returns
// the originally created entity with replayed=true and inserts nothing.
func (s *ResourceService[E, P]) Create(ctx context.Context, idemKey string, p P) (*E, bool, error) {
	ctx, span := s.start(ctx, "Create", attribute.Bool("idempotent", idemKey != ""))
	defer span.End()

	if err := s.Validator.Validate(s.Kind.Name, &p); err != nil {
		if _, ok := validation.As(err); ok {
			return nil, false, s.fail(span, "create", outcomeInvalid, err)
		}
		return nil, false, s.fail(span, "create", outcomeError, err)
	}

	if idemKey == "" {
		e := s.Kind.Build(p)
		if err := s.Repo.Insert(ctx, s.DB, &e); err != nil {
			return nil, false, s.fail(span, "create", outcomeError, s.storage("create", err))
		}
		observe(s.Kind.Name, "create", outcomeOK)
		return &e, false, nil
	}

	if e, ok, err := s.replay(ctx, idemKey); err != nil || ok {
		return s.replayResult(span, e, ok, err)
	}

	scope := s.Kind.Name
	var created E
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Write first so the transaction takes the write lock before reading.
		if err := repo.DeleteExpiredIdempotency(ctx, tx, scope, idemKey, s.clock()); err != nil {
			return err
		}
		e := s.Kind.Build(p)
		if err := s.Repo.Insert(ctx, tx, &e); err != nil {
			return err
		}
		if _, err := repo.CreateIdempotency(ctx, tx, scope, idemKey, e.RecordID(), http.StatusCreated, s.ttl()); err != nil {
			return err
		}
		created = e
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first.
		e, ok, rerr := s.replay(ctx, idemKey)
		if rerr == nil && !ok {
			rerr = ErrIdempotencyConflict
		}
		return s.replayResult(span, e, ok, rerr)
	}
	if err != nil {
		return nil, false, s.fail(span, "create", outcomeError, s.storage("create", err))
	}
	observe(s.Kind.Name, "create", outcomeOK)
	return &created, false, nil
}

func (s *ResourceService[E, P]) replayResult(span trace.Span, e *E, ok bool, err error) (*E, bool, error) {
	switch {
	case errors.Is(err, ErrIdempotencyConflict):
		return nil, false, s.fail(span, "create", outcomeConflict, err)
	case err != nil:
		return nil, false, s.fail(span, "create", outcomeError, err)
	}
	span.SetAttributes(attribute.Bool("replayed", ok))
	observe(s.Kind.Name, "create", outcomeReplayed)
	return e, ok, nil
}

// replay loads the entity recorded for idemKey, if a live record exists.
func (s *ResourceService[E, P]) replay(ctx context.Context, idemKey string) (*E, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, s.Kind.Name, idemKey, s.clock())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.storage("idempotency lookup", err)
	}
	e, err := s.Repo.Get(ctx, s.DB, rec.ResourceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, ErrIdempotencyConflict
	}
	if err != nil {
		return nil, false, s.storage("idempotency replay", err)
	}
	return e, true, nil
}

func (s *ResourceService[E, P]) ttl() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return DefaultIdempotencyTTL
	}
	return s.IdempotencyTTL
}
