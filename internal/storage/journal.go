package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"

	"vshell/internal/util"
)

// Entry is one executed command line.
type Entry struct {
	ID        int64
	SessionID string
	Seq       int64 // 1-based position within the session
	Input     string
	Output    string
	CreatedAt time.Time
}

// Journal is a libsql-backed append-only log of executed commands.
// Only command history is persisted; namespaces live in memory.
type Journal struct {
	path  string
	db    *sql.DB
	bunDB *BunDB
}

// OpenJournal opens the journal at path with the default context, creating
// it (and its directory) if needed.
func OpenJournal(path string) (*Journal, error) {
	return OpenJournalWithContext(path, DBContextDefault)
}

// OpenJournalWithContext opens or creates the journal at path.
func OpenJournalWithContext(path string, dbCtx DBContext) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("libsql", BuildDSN(path, dbCtx))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMAs apply per connection; a single connection keeps them in effect
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db, dbCtx); err != nil {
		db.Close()
		return nil, err
	}

	// Execute statements individually for libsql compatibility. The daemon
	// and a CLI can create the same journal at once, so a lock is retried.
	ctx := context.Background()
	if err := util.Retry(ctx, func() error {
		return execStatements(db, journalSchema)
	}, util.DatabaseRetryOptions(ctx)...); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := util.Retry(ctx, func() error {
		return execStatements(db, initJournal, SchemaVersion)
	}, util.DatabaseRetryOptions(ctx)...); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	bunDB := NewBunDB(db)
	fileType, err := bunDB.GetSchemaInfo(ctx, "type")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema info: %w", err)
	}
	if fileType != "journal" {
		db.Close()
		return nil, fmt.Errorf("not a journal file (type=%s)", fileType)
	}

	log.Debugf("[Journal] opened %s", path)
	return &Journal{
		path:  path,
		db:    db,
		bunDB: bunDB,
	}, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Path returns the file path
func (j *Journal) Path() string {
	return j.path
}

// Record appends e. A zero CreatedAt is stamped with the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.SessionID == "" {
		return fmt.Errorf("journal entry without session id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	model := &JournalEntryModel{
		SessionID: e.SessionID,
		Seq:       e.Seq,
		Input:     e.Input,
		Output:    e.Output,
		CreatedAt: e.CreatedAt.UnixNano(),
	}
	if _, err := j.bunDB.InsertJournalEntry(ctx, model); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// List returns up to limit of the most recent entries in the order they
// were recorded. An empty sessionID lists every session; limit <= 0 lists
// everything.
func (j *Journal) List(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	models, err := j.bunDB.ListJournalEntries(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	entries := make([]Entry, len(models))
	for i, m := range models {
		// newest first from the query; reverse into recording order
		entries[len(models)-1-i] = Entry{
			ID:        m.ID,
			SessionID: m.SessionID,
			Seq:       m.Seq,
			Input:     m.Input,
			Output:    m.Output,
			CreatedAt: time.Unix(0, m.CreatedAt),
		}
	}
	return entries, nil
}

// Count returns the number of recorded entries for sessionID, or for every
// session when sessionID is empty.
func (j *Journal) Count(ctx context.Context, sessionID string) (int, error) {
	return j.bunDB.CountJournalEntries(ctx, sessionID)
}
