package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"maintrack/internal/notification/models"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
	txcontext "maintrack/pkg/platform/tx"
)

// Postgres persists notifications in the notifications table. Writes join an
// enclosing SQL transaction when one is carried by the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, n models.Notification) error {
	var targetUser any
	if n.TargetUser != nil {
		targetUser = uuid.UUID(*n.TargetUser)
	}
	query := `
		INSERT INTO notifications (id, target_user, module, type, title, message, link, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(n.ID), targetUser, n.Module, string(n.Type),
		n.Title, n.Message, n.Link, n.CreatedAt, n.Read,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Postgres) ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error) {
	query := `
		SELECT id, target_user, module, type, title, message, link, created_at, read
		FROM notifications
		WHERE target_user = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list personal notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (s *Postgres) ListForModules(ctx context.Context, foldedModules []string) ([]models.Notification, error) {
	query := `
		SELECT id, target_user, module, type, title, message, link, created_at, read
		FROM notifications
		WHERE target_user IS NULL AND module = ANY($1)
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, pq.Array(foldedModules))
	if err != nil {
		return nil, fmt.Errorf("list module notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (s *Postgres) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	query := `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND target_user = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(notificationID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanNotifications(rows *sql.Rows) ([]models.Notification, error) {
	var out []models.Notification
	for rows.Next() {
		var (
			n          models.Notification
			rawID      uuid.UUID
			targetUser uuid.NullUUID
			typ        string
		)
		if err := rows.Scan(&rawID, &targetUser, &n.Module, &typ, &n.Title, &n.Message, &n.Link, &n.CreatedAt, &n.Read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(rawID)
		n.Type = models.Type(typ)
		if targetUser.Valid {
			user := id.UserID(targetUser.UUID)
			n.TargetUser = &user
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
