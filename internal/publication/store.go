package publication

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/REZICS/PolyPress/internal/locale"
	"github.com/REZICS/PolyPress/internal/sqlitepool"
)

const (
	// DirName is the per-workspace directory holding the store.
	DirName = ".polypress"

	// DatabaseFile is the store file inside DirName.
	DatabaseFile = "database.db"
)

// Options configures a Store.
type Options struct {
	// Logger receives store diagnostics. Nil discards.
	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Platforms are seeded for files without records. Defaults to DefaultPlatforms.
	Platforms []Platform

	// PoolSize is the number of SQLite connections per store.
	PoolSize int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Platforms == nil {
		o.Platforms = DefaultPlatforms
	}
	return o
}

// Store is the publication database of one workspace root.
type Store struct {
	root string
	pool *sqlitepool.Pool
	opts Options
}

// DatabasePath returns the store file for a workspace root.
func DatabasePath(root string) string {
	return filepath.Join(root, DirName, DatabaseFile)
}

// Open opens the store of root, creating the directory, the database
// file and the schema as needed. Older schemas are upgraded in place.
func Open(ctx context.Context, root string, opts Options) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, required("workspaceRoot")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Join(abs, DirName), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     DatabasePath(abs),
		PoolSize: opts.PoolSize,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open publication store: %w", err)
	}

	s := &Store{root: abs, pool: pool, opts: opts}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("open publication store: %w", err)
	}
	defer s.pool.Put(conn)

	added, err := migrate(conn)
	if err != nil {
		return fmt.Errorf("migrate publication store: %w", err)
	}
	if len(added) > 0 {
		s.opts.Logger.Info("publication store upgraded", "root", s.root, "columns", added)
	}
	return nil
}

// Root returns the resolved workspace root.
func (s *Store) Root() string { return s.root }

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

const selectRecord = `SELECT id, file_path, platform_id, platform_name,
	last_local_submitted_at, metadata_json, remote_url FROM publications`

func scanRecord(stmt *sqlite.Stmt) Record {
	r := Record{
		ID:                   stmt.ColumnText(0),
		FilePath:             stmt.ColumnText(1),
		PlatformID:           stmt.ColumnText(2),
		PlatformName:         stmt.ColumnText(3),
		LastLocalSubmittedAt: stmt.ColumnText(4),
		MetadataJSON:         stmt.ColumnText(5),
	}
	if r.PlatformName == "" {
		r.PlatformName = PlatformName(r.PlatformID)
	}
	if strings.TrimSpace(r.MetadataJSON) == "" {
		r.MetadataJSON = "{}"
	}
	if legacy := stmt.ColumnText(6); legacy != "" {
		if m := ParseMetadata(r.MetadataJSON); m.RemoteURL() == "" {
			r.MetadataJSON = m.WithRemoteURL(legacy).String()
		}
	}
	return r
}

func getRecord(conn *sqlite.Conn, id string) (*Record, error) {
	var rec *Record
	err := sqlitex.Execute(conn, selectRecord+" WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			r := scanRecord(stmt)
			rec = &r
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get publication %s: %w", id, err)
	}
	return rec, nil
}

// ListByFile returns the records of filePath, seeding one record per
// platform the first time the file is seen. Records are ordered by
// platform name, then platform id.
func (s *Store) ListByFile(ctx context.Context, filePath string) (records []Record, err error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, required("filePath")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("begin list transaction: %w", err)
	}
	defer endFn(&err)

	query := func() ([]Record, error) {
		var out []Record
		err := sqlitex.Execute(conn, selectRecord+" WHERE file_path = ?", &sqlitex.ExecOptions{
			Args: []any{filePath},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, scanRecord(stmt))
				return nil
			},
		})
		return out, err
	}

	records, err = query()
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}

	if len(records) == 0 {
		for _, p := range s.opts.Platforms {
			err := sqlitex.Execute(conn, `INSERT INTO publications
				(id, file_path, platform_id, platform_name, last_local_submitted_at, metadata_json, remote_url)
				VALUES (?, ?, ?, ?, ?, '{}', '')
				ON CONFLICT(id) DO NOTHING`, &sqlitex.ExecOptions{
				Args: []any{ID(p.ID, filePath), filePath, p.ID, p.Name, EpochSentinel},
			})
			if err != nil {
				return nil, fmt.Errorf("seed publication %s: %w", p.ID, err)
			}
		}
		s.opts.Logger.Debug("seeded publications", "file", filePath, "platforms", len(s.opts.Platforms))

		records, err = query()
		if err != nil {
			return nil, fmt.Errorf("list publications: %w", err)
		}
	}

	sortRecords(records)
	return records, nil
}

func sortRecords(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Or(
			locale.Compare(a.PlatformName, b.PlatformName),
			locale.Compare(a.PlatformID, b.PlatformID),
		)
	})
}

// Get returns the record with the given id, or nil.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, required("publicationId")
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)
	return getRecord(conn, id)
}

// RecordLocalSubmission stamps the record with the current time and
// returns it as persisted. The new timestamp is always later than the
// previous one. An unknown id yields nil.
func (s *Store) RecordLocalSubmission(ctx context.Context, id string) (rec *Record, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, required("publicationId")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("begin touch transaction: %w", err)
	}
	defer endFn(&err)

	rec, err = getRecord(conn, id)
	if err != nil || rec == nil {
		return nil, err
	}

	ts := nextSubmission(rec.LastLocalSubmittedAt, s.opts.Now())
	err = sqlitex.Execute(conn, "UPDATE publications SET last_local_submitted_at = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{ts, id}})
	if err != nil {
		return nil, fmt.Errorf("record submission of %s: %w", id, err)
	}
	rec.LastLocalSubmittedAt = ts
	return rec, nil
}

// SetRemoteURL merges remoteUrl into the record's metadata, keeping all
// other keys. An unknown id yields nil.
func (s *Store) SetRemoteURL(ctx context.Context, id, remoteURL string) (rec *Record, err error) {
	id = strings.TrimSpace(id)
	remoteURL = strings.TrimSpace(remoteURL)
	if id == "" {
		return nil, required("publicationId")
	}
	if remoteURL == "" {
		return nil, required("remoteUrl")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("begin remote url transaction: %w", err)
	}
	defer endFn(&err)

	rec, err = getRecord(conn, id)
	if err != nil || rec == nil {
		return nil, err
	}

	metadata := rec.Metadata().WithRemoteURL(remoteURL).String()
	err = sqlitex.Execute(conn, "UPDATE publications SET metadata_json = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{metadata, id}})
	if err != nil {
		return nil, fmt.Errorf("set remote url of %s: %w", id, err)
	}
	rec.MetadataJSON = metadata
	return rec, nil
}
