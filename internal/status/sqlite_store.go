package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements StatusStore interface with single-file SQLite storage
type SQLiteStore struct {
	db *sqlx.DB
}

// userStatusRow maps the user_status table for sqlx
type userStatusRow struct {
	UserID     string     `db:"user_id"`
	StatusType string     `db:"status_type"`
	StatusIcon *string    `db:"status_icon"`
	Message    *string    `db:"message"`
	ClearAt    *time.Time `db:"clear_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store at the
// given path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return store, nil
}

// Close releases the underlying database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`create table if not exists user_status(
		user_id     text not null primary key,
		status_type text not null,
		status_icon text null,
		message     text null,
		clear_at    datetime null,
		created_at  datetime not null
	)`)
	if err != nil {
		return fmt.Errorf("creating user_status table: %w", err)
	}

	return nil
}

// Insert creates a new status row
func (s *SQLiteStore) Insert(ctx context.Context, status *UserStatus) error {
	res, err := s.db.NamedExecContext(ctx, `insert into user_status
		(user_id, status_type, status_icon, message, clear_at, created_at)
		values(:user_id, :status_type, :status_icon, :message, :clear_at, :created_at)`,
		statusToRow(status))
	if err != nil {
		return fmt.Errorf("inserting user status: %w", err)
	}

	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}

	return nil
}

// Update overwrites all mutable fields of an existing status row
func (s *SQLiteStore) Update(ctx context.Context, status *UserStatus) error {
	res, err := s.db.NamedExecContext(ctx, `update user_status set
		status_type = :status_type,
		status_icon = :status_icon,
		message     = :message,
		clear_at    = :clear_at,
		created_at  = :created_at
		where user_id = :user_id`,
		statusToRow(status))
	if err != nil {
		return fmt.Errorf("updating user status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a status row
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `delete from user_status where user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting user status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// FindByUserID retrieves a status row by user ID
func (s *SQLiteStore) FindByUserID(ctx context.Context, userID string) (*UserStatus, error) {
	var row userStatusRow
	err := s.db.GetContext(ctx, &row, `select * from user_status where user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching user status: %w", err)
	}

	return rowToStatus(&row), nil
}

// FindAll retrieves all status rows, most recently written first
func (s *SQLiteStore) FindAll(ctx context.Context, limit, offset int) ([]*UserStatus, error) {
	// SQLite requires a LIMIT clause when OFFSET is used; -1 means unlimited.
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	var rows []userStatusRow
	err := s.db.SelectContext(ctx, &rows,
		`select * from user_status order by created_at desc, user_id asc limit ? offset ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing user statuses: %w", err)
	}

	statuses := make([]*UserStatus, len(rows))
	for i := range rows {
		statuses[i] = rowToStatus(&rows[i])
	}

	return statuses, nil
}

// DeleteExpired removes rows whose clear time is at or before the given instant
func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from user_status where clear_at is not null and clear_at <= ?`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired statuses: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return rows, nil
}

// Ping verifies the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func statusToRow(status *UserStatus) *userStatusRow {
	return &userStatusRow{
		UserID:     status.UserID,
		StatusType: string(status.StatusType),
		StatusIcon: status.StatusIcon,
		Message:    status.Message,
		ClearAt:    status.ClearAt,
		CreatedAt:  status.CreatedAt,
	}
}

func rowToStatus(row *userStatusRow) *UserStatus {
	return &UserStatus{
		UserID:     row.UserID,
		StatusType: StatusType(row.StatusType),
		StatusIcon: row.StatusIcon,
		Message:    row.Message,
		ClearAt:    row.ClearAt,
		CreatedAt:  row.CreatedAt,
	}
}
