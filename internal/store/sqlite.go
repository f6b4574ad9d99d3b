package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"restock-sync/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteBatchStore persists the batch cache in SQLite.
// Writes are serialized through a single writer.
type SQLiteBatchStore struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// NewSQLiteBatchStore opens (or creates) the database and ensures the schema
func NewSQLiteBatchStore(path string, logger *zap.Logger) (*SQLiteBatchStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteBatchStore{
		db:     db,
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite batch store ready", zap.String("path", path))
	return s, nil
}

func (s *SQLiteBatchStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		custom_supply_id INTEGER NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		expiration_date TEXT,
		custom_supply TEXT NOT NULL,
		local_only INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		CHECK(stock >= 0),
		CHECK(local_only IN (0, 1))
	);

	CREATE INDEX IF NOT EXISTS idx_batches_custom_supply_id ON batches(custom_supply_id);
	CREATE INDEX IF NOT EXISTS idx_batches_user_id ON batches(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteBatchStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *SQLiteBatchStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteBatchStore) Upsert(ctx context.Context, batch domain.Batch) error {
	if batch.ID == "" {
		return ErrMissingID
	}

	snapshot, err := json.Marshal(batch.CustomSupply)
	if err != nil {
		return fmt.Errorf("failed to encode custom supply snapshot: %w", err)
	}

	var expiration sql.NullString
	if batch.ExpirationDate != nil {
		expiration = sql.NullString{String: domain.FormatExpiration(batch.ExpirationDate), Valid: true}
	}
	localOnly := 0
	if batch.IsLocalOnly() {
		localOnly = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO batches (id, user_id, custom_supply_id, stock, expiration_date, custom_supply, local_only, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			custom_supply_id = excluded.custom_supply_id,
			stock = excluded.stock,
			expiration_date = excluded.expiration_date,
			custom_supply = excluded.custom_supply,
			local_only = excluded.local_only,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		batch.ID, batch.UserID, batch.CustomSupply.ID, batch.Stock,
		expiration, string(snapshot), localOnly,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}
	return nil
}

func (s *SQLiteBatchStore) Get(ctx context.Context, id string) (*domain.Batch, error) {
	query := `
		SELECT id, user_id, stock, expiration_date, custom_supply
		FROM batches
		WHERE id = ?
	`

	batch, err := scanBatch(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

func (s *SQLiteBatchStore) List(ctx context.Context) ([]domain.Batch, error) {
	query := `
		SELECT id, user_id, stock, expiration_date, custom_supply
		FROM batches
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]domain.Batch, 0)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

func (s *SQLiteBatchStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

func (s *SQLiteBatchStore) DeleteByCustomSupply(ctx context.Context, customSupplyID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE custom_supply_id = ?`, customSupplyID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batches of custom supply: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (s *SQLiteBatchStore) ReplaceCustomSupply(ctx context.Context, fromID int64, supply domain.CustomSupply) (int, error) {
	snapshot, err := json.Marshal(supply)
	if err != nil {
		return 0, fmt.Errorf("failed to encode custom supply snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE batches
		SET custom_supply_id = ?, custom_supply = ?, updated_at = ?
		WHERE custom_supply_id = ?
	`, supply.ID, string(snapshot), time.Now().UTC().Format(time.RFC3339), fromID)
	if err != nil {
		return 0, fmt.Errorf("failed to re-point batches of custom supply: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var batch domain.Batch
	var expiration sql.NullString
	var snapshot string

	if err := row.Scan(&batch.ID, &batch.UserID, &batch.Stock, &expiration, &snapshot); err != nil {
		return nil, err
	}

	if expiration.Valid {
		batch.ExpirationDate, _ = domain.ParseExpiration(expiration.String)
	}
	if err := json.Unmarshal([]byte(snapshot), &batch.CustomSupply); err != nil {
		return nil, fmt.Errorf("failed to decode custom supply snapshot: %w", err)
	}
	return &batch, nil
}
