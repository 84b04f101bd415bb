// Package tx makes the unit-of-work boundary explicit. A Manager wraps a write
// in a transaction and exposes the boundary through the context: stores join
// the SQL transaction via From, and reactions that must only run once the
// write is durable register themselves with AfterCommit.
package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

type (
	txKey  struct{}
	uowKey struct{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// Hook is a reaction deferred until the enclosing unit of work commits.
// It receives a context detached from the request's cancellation.
type Hook func(ctx context.Context)

// UnitOfWork collects after-commit hooks for one logical write.
type UnitOfWork struct {
	mu    sync.Mutex
	hooks []Hook
}

// AfterCommit queues a hook to run once the unit of work commits. Hooks are
// discarded if the unit of work rolls back.
func (u *UnitOfWork) AfterCommit(hook Hook) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hooks = append(u.hooks, hook)
}

func (u *UnitOfWork) drain() []Hook {
	u.mu.Lock()
	defer u.mu.Unlock()
	hooks := u.hooks
	u.hooks = nil
	return hooks
}

// WithUnitOfWork stores a unit of work in context.
func WithUnitOfWork(ctx context.Context, u *UnitOfWork) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, uowKey{}, u)
}

// UnitOfWorkFrom extracts the current unit of work, if any.
func UnitOfWorkFrom(ctx context.Context) (*UnitOfWork, bool) {
	u, ok := ctx.Value(uowKey{}).(*UnitOfWork)
	return u, ok
}

// AfterCommit queues hook on the unit of work carried by ctx. Returns false
// when no unit of work is active, in which case the caller owns the decision
// to run the hook immediately.
func AfterCommit(ctx context.Context, hook Hook) bool {
	u, ok := UnitOfWorkFrom(ctx)
	if !ok {
		return false
	}
	u.AfterCommit(hook)
	return true
}

// Manager runs a function inside a unit of work and fires after-commit hooks
// once the work is durable.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InMemoryManager is the Manager used with in-memory stores and in tests.
// There is no real transaction; fn either succeeds (hooks fire) or fails
// (hooks are discarded).
type InMemoryManager struct{}

func NewInMemoryManager() *InMemoryManager { return &InMemoryManager{} }

func (m *InMemoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	uow := &UnitOfWork{}
	if err := fn(WithUnitOfWork(ctx, uow)); err != nil {
		return err
	}
	runHooks(ctx, uow)
	return nil
}

// SQLManager wraps fn in a database/sql transaction. Stores opt in to the
// transaction through From; after-commit hooks fire only when Commit returns
// without error.
type SQLManager struct {
	db *sql.DB
}

func NewSQLManager(db *sql.DB) *SQLManager { return &SQLManager{db: db} }

func (m *SQLManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	uow := &UnitOfWork{}
	txCtx := WithUnitOfWork(WithTx(ctx, sqlTx), uow)

	if err := fn(txCtx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	runHooks(ctx, uow)
	return nil
}

// runHooks invokes queued hooks with a context that keeps request-scoped
// values but is detached from the request's cancellation: the commit already
// happened, so a client disconnect must not abort the reactions.
func runHooks(ctx context.Context, uow *UnitOfWork) {
	detached := context.WithoutCancel(ctx)
	for _, hook := range uow.drain() {
		hook(detached)
	}
}
