package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/atinyakov/glbkeeper/internal/notify"
	"go.uber.org/zap"
)

const selectModels = `SELECT id, name, fileName, filePath, fileSize, addedDate FROM glb_models`

// ModelRepository implements the model catalog against the glb_models table
// and keeps subscribed consumers up to date after every change.
type ModelRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB

	log *zap.Logger
	hub *notify.Hub[[]models.Model]
	// pubMu orders snapshot reads with subscription, so no change is missed
	// between a subscriber's first snapshot and its registration.
	pubMu sync.Mutex
}

// NewModelRepository creates a new ModelRepository using the provided *sql.DB.
func NewModelRepository(db *sql.DB, log *zap.Logger) *ModelRepository {
	return &ModelRepository{
		DB:  db,
		log: log,
		hub: notify.NewHub[[]models.Model](),
	}
}

// Insert appends m to the catalog and stores the assigned identifier in m.ID.
// FilePath is stored as given; its existence is not checked.
func (r *ModelRepository) Insert(ctx context.Context, m *models.Model) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO glb_models (name, fileName, filePath, fileSize, addedDate)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, m.Name, m.FileName, m.FilePath, m.FileSize, m.AddedDate).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	r.publish(ctx)
	return nil
}

// Delete removes the row with m's identifier. Deleting a row that is already
// gone is not an error.
func (r *ModelRepository) Delete(ctx context.Context, m models.Model) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM glb_models WHERE id = $1`, m.ID)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.publish(ctx)
	}
	return nil
}

// ListAll returns every catalog row, newest first.
func (r *ModelRepository) ListAll(ctx context.Context) ([]models.Model, error) {
	rows, err := r.DB.QueryContext(ctx, selectModels+` ORDER BY addedDate DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer rows.Close()

	list := make([]models.Model, 0)
	for rows.Next() {
		var m models.Model
		if err := rows.Scan(&m.ID, &m.Name, &m.FileName, &m.FilePath, &m.FileSize, &m.AddedDate); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return list, nil
}

// GetByID returns the model with the given identifier or ErrNotFound.
func (r *ModelRepository) GetByID(ctx context.Context, id int64) (*models.Model, error) {
	var m models.Model
	err := r.DB.QueryRowContext(ctx, selectModels+` WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.FileName, &m.FilePath, &m.FileSize, &m.AddedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &m, nil
}

// Subscribe returns a channel that receives the current ordered catalog
// immediately and a fresh snapshot after every change. The channel is closed
// when ctx is done.
func (r *ModelRepository) Subscribe(ctx context.Context) (<-chan []models.Model, error) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	snapshot, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.hub.Subscribe(ctx, snapshot), nil
}

// Refresh re-reads the catalog and pushes it to subscribers. It is used when
// the store was changed by another process.
func (r *ModelRepository) Refresh(ctx context.Context) error {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	if r.hub.Len() == 0 {
		return nil
	}
	snapshot, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	r.hub.Publish(snapshot)
	return nil
}

// publish runs after a successful mutation. A failed snapshot leaves
// subscribers on their previous view; the mutation itself has already
// been committed.
func (r *ModelRepository) publish(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("failed to refresh catalog subscribers", zap.Error(err))
	}
}
