package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresStore implements StatusStore interface with PostgreSQL storage
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// NewPostgresDB opens a PostgreSQL connection pool and verifies it is reachable
func NewPostgresDB(dsn string, maxConnections int) (*bun.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	if maxConnections <= 0 {
		maxConnections = 10
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(maxConnections)
	sqldb.SetMaxIdleConns(maxConnections / 2)
	sqldb.SetConnMaxLifetime(time.Hour)

	db := bun.NewDB(sqldb, pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// UserStatusSchema represents the user_statuses table schema
type UserStatusSchema struct {
	bun.BaseModel `bun:"table:user_statuses,alias:us"`

	UserID     string     `bun:"user_id,pk" json:"user_id"`
	StatusType string     `bun:"status_type,notnull" json:"status_type"`
	StatusIcon *string    `bun:"status_icon,nullzero" json:"status_icon,omitempty"`
	Message    *string    `bun:"message,nullzero" json:"message,omitempty"`
	ClearAt    *time.Time `bun:"clear_at,nullzero" json:"clear_at,omitempty"`
	CreatedAt  time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// Migrate creates the user_statuses table if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*UserStatusSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user_statuses table: %w", err)
	}

	return nil
}

// Insert creates a new status row
func (s *PostgresStore) Insert(ctx context.Context, status *UserStatus) error {
	schema := statusToSchema(status)

	_, err := s.db.NewInsert().
		Model(schema).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert user status: %w", err)
	}

	return nil
}

// Update overwrites all mutable fields of an existing status row
func (s *PostgresStore) Update(ctx context.Context, status *UserStatus) error {
	schema := statusToSchema(status)

	result, err := s.db.NewUpdate().
		Model(schema).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a status row
func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	result, err := s.db.NewDelete().
		Model((*UserStatusSchema)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// FindByUserID retrieves a status row by user ID
func (s *PostgresStore) FindByUserID(ctx context.Context, userID string) (*UserStatus, error) {
	var schema UserStatusSchema
	err := s.db.NewSelect().
		Model(&schema).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user status: %w", err)
	}

	return schemaToStatus(&schema), nil
}

// FindAll retrieves all status rows, most recently written first
func (s *PostgresStore) FindAll(ctx context.Context, limit, offset int) ([]*UserStatus, error) {
	var schemas []UserStatusSchema
	query := s.db.NewSelect().
		Model(&schemas).
		Order("created_at DESC").
		Order("user_id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list user statuses: %w", err)
	}

	statuses := make([]*UserStatus, len(schemas))
	for i := range schemas {
		statuses[i] = schemaToStatus(&schemas[i])
	}

	return statuses, nil
}

// DeleteExpired removes rows whose clear time is at or before the given instant
func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.NewDelete().
		Model((*UserStatusSchema)(nil)).
		Where("clear_at IS NOT NULL").
		Where("clear_at <= ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired statuses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// Ping verifies the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func statusToSchema(status *UserStatus) *UserStatusSchema {
	return &UserStatusSchema{
		UserID:     status.UserID,
		StatusType: string(status.StatusType),
		StatusIcon: status.StatusIcon,
		Message:    status.Message,
		ClearAt:    status.ClearAt,
		CreatedAt:  status.CreatedAt,
	}
}

// schemaToStatus converts database schema to the status model
func schemaToStatus(schema *UserStatusSchema) *UserStatus {
	return &UserStatus{
		UserID:     schema.UserID,
		StatusType: StatusType(schema.StatusType),
		StatusIcon: schema.StatusIcon,
		Message:    schema.Message,
		ClearAt:    schema.ClearAt,
		CreatedAt:  schema.CreatedAt,
	}
}
