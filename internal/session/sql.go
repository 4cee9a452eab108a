package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/credgate/internal/database"
	"github.com/isdelr/credgate/internal/models"
	"github.com/jmoiron/sqlx"
)

// SQLBackend keeps sessions in the sessions table next to users.
type SQLBackend struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSQLBackend creates a SQLBackend.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db, sb: database.Builder(db)}
}

func (b *SQLBackend) Load(ctx context.Context, id string) (string, error) {
	query, args, err := b.sb.Select("id", "data", "expires_at").
		From("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return "", err
	}

	var rec models.SessionRecord
	if err := b.db.GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	if rec.ExpiresAt <= time.Now().Unix() {
		return "", ErrNotFound
	}
	return rec.Data, nil
}

func (b *SQLBackend) Save(ctx context.Context, id, data string, expiresAt time.Time) error {
	query, args, err := b.sb.Insert("sessions").
		Columns("id", "data", "expires_at").
		Values(id, data, expiresAt.Unix()).
		Suffix("ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, id string) error {
	query, args, err := b.sb.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired removes every session that expired at or before now and
// reports how many were removed.
func (b *SQLBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := b.sb.Delete("sessions").Where(sq.LtOrEq{"expires_at": now.Unix()}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
