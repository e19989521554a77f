package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zara/scraper/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSnapshotNotFound is returned when no snapshot was stored yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Schema creates the snapshot table. Applied once at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS category_snapshots (
	id                BIGSERIAL PRIMARY KEY,
	fetched_at        TIMESTAMPTZ NOT NULL,
	category_count    INTEGER NOT NULL,
	subcategory_count INTEGER NOT NULL,
	data              JSONB NOT NULL
)`

type SnapshotRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) (int64, error)
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type snapshotRepository struct {
	db DB
}

func NewSnapshotRepository(db DB) SnapshotRepository {
	return &snapshotRepository{
		db: db,
	}
}

func (r *snapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

func (r *snapshotRepository) SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) (int64, error) {
	data, err := json.Marshal(snapshot.Categories)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot categories: %w", err)
	}

	query := `
	INSERT INTO category_snapshots (fetched_at, category_count, subcategory_count, data)
	VALUES ($1, $2, $3, $4)
	RETURNING id`

	var id int64
	err = r.db.QueryRow(ctx, query,
		snapshot.FetchedAt,
		snapshot.CategoryCount,
		snapshot.SubcategoryCount,
		data,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}

	return id, nil
}

func (r *snapshotRepository) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	query := `
	SELECT id, fetched_at, category_count, subcategory_count, data
	FROM category_snapshots
	ORDER BY fetched_at DESC, id DESC
	LIMIT 1`

	var (
		snapshot domain.Snapshot
		data     []byte
	)
	err := r.db.QueryRow(ctx, query).Scan(
		&snapshot.ID,
		&snapshot.FetchedAt,
		&snapshot.CategoryCount,
		&snapshot.SubcategoryCount,
		&data,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &snapshot.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %d: %w", snapshot.ID, err)
	}

	return &snapshot, nil
}
