// Package ordering keeps a persisted manual order over sibling records held
// in a document store that has no ordering or multi-document transactions of
// its own.
//
// Every mutation is a set of independent single-document writes that are
// fanned out concurrently and gathered. A batch is never atomic: when some
// writes fail the call returns a *BatchError and the caller is expected to
// re-fetch the scope rather than trust any local copy. The next successful
// Insert, Reorder or Normalize on the scope restores contiguous orders.
package ordering

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"studio/admin/internal/docstore"
)

const DefaultConcurrency = 8

// Store is the subset of docstore.Store the manager writes through.
type Store interface {
	List(ctx context.Context, scope docstore.Scope) ([]docstore.Record, error)
	Create(ctx context.Context, collection string, fields map[string]any, order *int) (string, error)
	SetOrder(ctx context.Context, collection, id string, order int) error
	Delete(ctx context.Context, collection, id string) error
}

type Manager struct {
	store       Store
	logger      *zap.Logger
	concurrency int
}

func NewManager(store Store, logger *zap.Logger, concurrency int) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Manager{store: store, logger: logger, concurrency: concurrency}
}

// List returns the scope in display order.
func (m *Manager) List(ctx context.Context, scope docstore.Scope) ([]docstore.Record, error) {
	if err := validateScope("list", scope); err != nil {
		return nil, err
	}
	records, err := m.store.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", scope, err)
	}
	return ResolveSortOrder(records), nil
}

// Insert creates a record at order 0 and moves every ordered sibling down by
// one. Siblings are renumbered from their resolved position, which equals
// order+1 for a contiguous scope and closes any gaps or duplicates otherwise.
// Records without an order are left untouched.
//
// The create and the shifts are issued together. When the create lands but
// a shift fails, the new id is returned alongside the *BatchError.
func (m *Manager) Insert(ctx context.Context, scope docstore.Scope, fields map[string]any) (string, error) {
	if err := validateScope("insert", scope); err != nil {
		return "", err
	}
	existing, err := m.store.List(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("insert into %s: list: %w", scope, err)
	}

	data := docstore.CloneFields(fields)
	if scope.Field != "" {
		data[scope.Field] = scope.Value
	}

	var id string
	writes := []write{{
		op: "create",
		run: func(ctx context.Context) error {
			created, err := m.store.Create(ctx, scope.Collection, data, docstore.IntPtr(0))
			if err != nil {
				return err
			}
			id = created
			return nil
		},
	}}
	for i, record := range ordered(existing) {
		writes = append(writes, m.setOrder(scope, record.ID, i+1))
	}

	err = gather(ctx, "insert into "+scope.String(), m.concurrency, writes)
	m.logBatch("insert", scope, len(writes), err)
	return id, err
}

// Reorder writes order = i for ids[i]. ids must name every record in the
// scope exactly once; anything else is rejected before a write is issued.
func (m *Manager) Reorder(ctx context.Context, scope docstore.Scope, ids []string) error {
	if err := validateScope("reorder", scope); err != nil {
		return err
	}
	records, err := m.store.List(ctx, scope)
	if err != nil {
		return fmt.Errorf("reorder %s: list: %w", scope, err)
	}
	if err := validatePermutation(records, ids); err != nil {
		return err
	}

	writes := make([]write, 0, len(ids))
	for i, id := range ids {
		writes = append(writes, m.setOrder(scope, id, i))
	}
	err = gather(ctx, "reorder "+scope.String(), m.concurrency, writes)
	m.logBatch("reorder", scope, len(writes), err)
	return err
}

// Remove deletes one record. Siblings keep their orders; the gap left
// behind does not change their relative sequence.
func (m *Manager) Remove(ctx context.Context, scope docstore.Scope, id string) error {
	if err := validateScope("remove", scope); err != nil {
		return err
	}
	if id == "" {
		return &ValidationError{Op: "remove", Reason: "id is required"}
	}
	if err := m.store.Delete(ctx, scope.Collection, id); err != nil {
		return &WriteError{ID: id, Op: "delete", Err: err}
	}
	return nil
}

// Normalize rewrites the ordered records of a scope to their resolved index
// and returns how many writes were needed. Records without an order are left
// alone.
func (m *Manager) Normalize(ctx context.Context, scope docstore.Scope) (int, error) {
	if err := validateScope("normalize", scope); err != nil {
		return 0, err
	}
	records, err := m.store.List(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("normalize %s: list: %w", scope, err)
	}

	var writes []write
	for i, record := range ordered(records) {
		if *record.Order != i {
			writes = append(writes, m.setOrder(scope, record.ID, i))
		}
	}
	err = gather(ctx, "normalize "+scope.String(), m.concurrency, writes)
	m.logBatch("normalize", scope, len(writes), err)
	return len(writes), err
}

func (m *Manager) setOrder(scope docstore.Scope, id string, order int) write {
	return write{
		id: id,
		op: "set order",
		run: func(ctx context.Context) error {
			return m.store.SetOrder(ctx, scope.Collection, id, order)
		},
	}
}

func (m *Manager) logBatch(op string, scope docstore.Scope, attempted int, err error) {
	if err == nil {
		m.logger.Debug("order batch applied",
			zap.String("op", op),
			zap.String("scope", scope.String()),
			zap.Int("writes", attempted),
		)
		return
	}
	var batch *BatchError
	if errors.As(err, &batch) {
		m.logger.Warn("order batch partially failed",
			zap.String("op", op),
			zap.String("scope", scope.String()),
			zap.Int("writes", attempted),
			zap.Int("failed", len(batch.Failures)),
			zap.Strings("failed_ids", batch.FailedIDs()),
		)
	}
}

func validateScope(op string, scope docstore.Scope) error {
	if scope.Collection == "" {
		return &ValidationError{Op: op, Reason: "scope collection is required"}
	}
	if scope.Field != "" && scope.Value == "" {
		return &ValidationError{Op: op, Reason: fmt.Sprintf("scope value for %q is required", scope.Field)}
	}
	return nil
}

func validatePermutation(records []docstore.Record, ids []string) error {
	inScope := make(map[string]bool, len(records))
	for _, record := range records {
		inScope[record.ID] = true
	}

	verr := &ValidationError{Op: "reorder", Reason: "ids must be a permutation of the scope"}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		switch {
		case seen[id]:
			verr.Duplicate = append(verr.Duplicate, id)
		case !inScope[id]:
			verr.Unknown = append(verr.Unknown, id)
		}
		seen[id] = true
	}
	for _, record := range records {
		if !seen[record.ID] {
			verr.Missing = append(verr.Missing, record.ID)
		}
	}

	if len(verr.Missing) > 0 || len(verr.Unknown) > 0 || len(verr.Duplicate) > 0 {
		return verr
	}
	return nil
}
