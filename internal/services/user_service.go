package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/isdelr/credgate/internal/database"
	"github.com/isdelr/credgate/internal/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidFilter = errors.New("invalid user filter")
)

// Filter is an exact-match lookup over user columns, e.g. {"username": "sue"}.
type Filter map[string]interface{}

// ByUsername is the filter used for existence checks and credential lookup.
func ByUsername(username string) Filter {
	return Filter{"username": username}
}

var filterColumns = map[string]bool{
	"user_id":  true,
	"username": true,
}

// UserServiceProvider defines the interface for user persistence.
type UserServiceProvider interface {
	Find(ctx context.Context) ([]models.User, error)
	FindBy(ctx context.Context, filter Filter) ([]models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Add(ctx context.Context, user models.User) (*models.User, error)
}

// UserService reads and inserts rows of the users table.
type UserService struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB) *UserService {
	return &UserService{db: db, sb: database.Builder(db)}
}

// Find returns every user without the password hash.
func (s *UserService) Find(ctx context.Context) ([]models.User, error) {
	query, args, err := s.sb.Select("user_id", "username").From("users").OrderBy("user_id").ToSql()
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

// FindBy returns full user records, hash included, matching every column
// of filter. No match yields an empty slice.
func (s *UserService) FindBy(ctx context.Context, filter Filter) ([]models.User, error) {
	if len(filter) == 0 {
		return nil, fmt.Errorf("%w: empty filter", ErrInvalidFilter)
	}
	where := sq.Eq{}
	for column, value := range filter {
		if !filterColumns[column] {
			return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidFilter, column)
		}
		where[column] = value
	}

	query, args, err := s.sb.Select("user_id", "username", "password").
		From("users").
		Where(where).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

// FindByID retrieves a single user by id, without the password hash.
func (s *UserService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query, args, err := s.sb.Select("user_id", "username").
		From("users").
		Where(sq.Eq{"user_id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

// Add inserts a user whose Password is already hashed and returns the
// stored row as read back by id.
func (s *UserService) Add(ctx context.Context, user models.User) (*models.User, error) {
	query, args, err := s.sb.Insert("users").
		Columns("username", "password").
		Values(user.Username, user.Password).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.FindByID(ctx, id)
}
