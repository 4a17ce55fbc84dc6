package storage

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"vshell/internal/util"
)

// BunDB wraps a Bun database instance for type-safe queries.
type BunDB struct {
	*bun.DB
}

// NewBunDB wraps an existing *sql.DB with Bun's type-safe query builder.
func NewBunDB(sqlDB *sql.DB) *BunDB {
	bunDB := bun.NewDB(sqlDB, sqlitedialect.New())
	return &BunDB{DB: bunDB}
}

// --- Schema Info ---

// GetSchemaInfo retrieves a schema info value by key.
func (db *BunDB) GetSchemaInfo(ctx context.Context, key string) (string, error) {
	var info SchemaInfoModel
	err := db.NewSelect().
		Model(&info).
		Where("key = ?", key).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return info.Value, nil
}

// --- Journal Operations ---

// InsertJournalEntry appends one entry and returns its row ID.
// Retries on "database is locked", which the CLI can cause by reading the
// journal while the daemon writes it.
func (db *BunDB) InsertJournalEntry(ctx context.Context, model *JournalEntryModel) (int64, error) {
	return util.RetryWithResult(ctx,
		func() (int64, error) {
			// RETURNING instead of LastInsertId, which libsql does not support
			_, err := db.NewInsert().
				Model(model).
				Returning("id").
				Exec(ctx)
			if err != nil {
				return 0, err
			}
			return model.ID, nil
		},
		util.DatabaseRetryOptions(ctx)...)
}

// ListJournalEntries returns the newest entries first. An empty sessionID
// selects every session; limit <= 0 means no limit.
func (db *BunDB) ListJournalEntries(ctx context.Context, sessionID string, limit int) ([]JournalEntryModel, error) {
	var models []JournalEntryModel
	q := db.NewSelect().
		Model(&models).
		OrderExpr("id DESC")
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return models, nil
}

// CountJournalEntries returns the number of entries recorded for sessionID,
// or for every session when sessionID is empty.
func (db *BunDB) CountJournalEntries(ctx context.Context, sessionID string) (int, error) {
	q := db.NewSelect().Model((*JournalEntryModel)(nil))
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	return q.Count(ctx)
}
