package mapping

import (
	"context"
	"database/sql"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps mappings and settings in a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS mappings (
		id         TEXT PRIMARY KEY,
		position   INTEGER NOT NULL,
		name       TEXT NOT NULL,
		address    TEXT NOT NULL DEFAULT '',
		datapath   TEXT NOT NULL DEFAULT '',
		enabled    INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mappings_position ON mappings(position);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	return err
}

// Add appends a mapping after the existing rows.
func (s *SQLiteStore) Add(ctx context.Context, p AddParams) (*Row, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM mappings`).Scan(&count); err != nil {
		return nil, errors.Wrap(err, "count mappings")
	}

	r := &Row{
		ID:        s.newID(),
		Position:  count,
		Name:      p.Name,
		Address:   p.Address,
		Datapath:  p.Datapath,
		Enabled:   !p.Disabled,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if r.Name == "" {
		r.Name = "Mapping " + strconv.Itoa(count+1)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO mappings (id, position, name, address, datapath, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Position, r.Name, r.Address, r.Datapath, r.Enabled, r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, errors.Wrap(err, "insert mapping")
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

const rowColumns = `id, position, name, address, datapath, enabled, created_at`

// Get returns the row with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Row, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM mappings WHERE id = ?`, id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return r, err
}

// At returns the row at position pos, counting from zero.
func (s *SQLiteStore) At(ctx context.Context, pos int) (*Row, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM mappings WHERE position = ?`, pos)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "position %d", pos)
	}
	return r, err
}

// Find looks ref up as a 1-based position when it is a number, as an ID otherwise.
func (s *SQLiteStore) Find(ctx context.Context, ref string) (*Row, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		return s.At(ctx, n-1)
	}
	return s.Get(ctx, ref)
}

// List returns every row in order.
func (s *SQLiteStore) List(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rowColumns+` FROM mappings ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "list mappings")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Update changes the non-nil fields of p on the row with the given ID.
func (s *SQLiteStore) Update(ctx context.Context, id string, p UpdateParams) (*Row, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	r, err := scanRow(tx.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM mappings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Address != nil {
		r.Address = *p.Address
	}
	if p.Datapath != nil {
		r.Datapath = *p.Datapath
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE mappings SET name = ?, address = ?, datapath = ? WHERE id = ?`,
		r.Name, r.Address, r.Datapath, id)
	if err != nil {
		return nil, errors.Wrap(err, "update mapping")
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

// SetEnabled turns a mapping on or off.
func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE mappings SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return errors.Wrap(err, "update mapping")
	}
	return expectOne(res, id)
}

// Remove deletes a mapping and closes the gap in positions.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var pos int
	err = tx.QueryRowContext(ctx, `SELECT position FROM mappings WHERE id = ?`, id).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM mappings WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "delete mapping")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE mappings SET position = position - 1 WHERE position > ?`, pos); err != nil {
		return errors.Wrap(err, "compact positions")
	}
	return tx.Commit()
}

// Settings returns the saved listener settings, filling in defaults for
// anything never saved.
func (s *SQLiteStore) Settings(ctx context.Context) (Settings, error) {
	st := DefaultSettings()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return st, errors.Wrap(err, "read settings")
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return st, err
		}
		switch k {
		case "host":
			st.Host = v
		case "port":
			port, err := strconv.Atoi(v)
			if err != nil {
				return st, errors.Wrapf(err, "stored port %q", v)
			}
			st.Port = port
		}
	}
	return st, rows.Err()
}

// SaveSettings stores st.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st Settings) error {
	if st.Port < 1 || st.Port > 65535 {
		return errors.Errorf("port %d out of range 1-65535", st.Port)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range map[string]string{"host": st.Host, "port": strconv.Itoa(st.Port)} {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
		if err != nil {
			return errors.Wrapf(err, "save %s", k)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (*Row, error) {
	var (
		r       Row
		created string
	)
	if err := sc.Scan(&r.ID, &r.Position, &r.Name, &r.Address, &r.Datapath, &r.Enabled, &created); err != nil {
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &r, nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}
