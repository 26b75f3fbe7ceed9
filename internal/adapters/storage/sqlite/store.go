package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
)

// timeLayout is a fixed-width RFC3339 variant so stored timestamps sort
// correctly under lexicographic ORDER BY.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the persistent session/event/gift-target store. It implements the
// usecase repository interfaces over a single SQLite database.
type Store struct {
	db *sql.DB
}

// Open initializes the database with WAL, busy_timeout and foreign_keys
// pragmas applied to every pooled connection, then runs migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'connecting', 'connected', 'disconnected', 'error')),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		username TEXT NOT NULL,
		like_count INTEGER,
		gift_name TEXT,
		gift_value INTEGER,
		profile_pic TEXT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		raw_event TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON sessions(status, created_at);

	CREATE TABLE IF NOT EXISTS gift_catalog (
		gift_id INTEGER PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS gift_catalog_names (
		gift_id INTEGER NOT NULL REFERENCES gift_catalog(gift_id) ON DELETE CASCADE,
		locale TEXT NOT NULL,
		display_name TEXT NOT NULL,
		PRIMARY KEY (gift_id, locale)
	);

	CREATE TABLE IF NOT EXISTS gift_target_config (
		handle TEXT NOT NULL,
		gift_id INTEGER NOT NULL REFERENCES gift_catalog(gift_id),
		PRIMARY KEY (handle, gift_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SessionRepository

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	if !sess.Status.Valid() {
		return fmt.Errorf("invalid session status %q", sess.Status)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, username, status, created_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Username, string(sess.Status), sess.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, status, created_at FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("select session: %w", err)
	}
	return sess, true, nil
}

func (s *Store) LatestPendingSession(ctx context.Context) (domain.Session, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, status, created_at FROM sessions
		 WHERE status = 'pending' ORDER BY created_at DESC LIMIT 1`)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("select pending session: %w", err)
	}
	return sess, true, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid session status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, status, created_at FROM sessions
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteStaleSessions removes terminal and never-adopted pending sessions
// older than the cutoff, deleting their events first so the foreign key on
// events is never violated.
func (s *Store) DeleteStaleSessions(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(timeLayout)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const where = `status IN ('disconnected', 'error', 'pending') AND created_at < ?`
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE session_id IN (SELECT id FROM sessions WHERE `+where+`)`, cutoff); err != nil {
		return 0, fmt.Errorf("delete stale events: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE `+where, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return int(n), nil
}

// EventRepository

func (s *Store) AppendEvent(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, event_type, username, like_count, gift_name, gift_value, profile_pic, session_id, raw_event, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.Username, e.LikeCount, e.GiftName, e.GiftValue, e.ProfilePic,
		e.SessionID, e.Raw, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, username, like_count, gift_name, gift_value, profile_pic, session_id, raw_event, created_at
		 FROM events WHERE session_id = ? ORDER BY created_at LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var created string
		if err := rows.Scan(&e.ID, &e.Type, &e.Username, &e.LikeCount, &e.GiftName,
			&e.GiftValue, &e.ProfilePic, &e.SessionID, &e.Raw, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSessionEvents(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session events: %w", err)
	}
	return nil
}

// GiftTargetRepository

func (s *Store) GiftTargetsForHandle(ctx context.Context, handle string) ([]domain.GiftTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.gift_id, g.value, n.display_name
		 FROM gift_target_config c
		 JOIN gift_catalog g ON g.gift_id = c.gift_id
		 LEFT JOIN gift_catalog_names n ON n.gift_id = c.gift_id
		 WHERE c.handle = ?
		 ORDER BY c.gift_id, n.locale`, handle)
	if err != nil {
		return nil, fmt.Errorf("select gift targets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.GiftTarget
	for rows.Next() {
		var giftID int64
		var value int
		var name sql.NullString
		if err := rows.Scan(&giftID, &value, &name); err != nil {
			return nil, fmt.Errorf("scan gift target: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].GiftID != giftID {
			out = append(out, domain.GiftTarget{GiftID: giftID, Value: value})
		}
		if name.Valid {
			out[len(out)-1].Names = append(out[len(out)-1].Names, name.String)
		}
	}
	return out, rows.Err()
}

// UpsertCatalogGift registers gift metadata: numeric id, value and localized
// display names.
func (s *Store) UpsertCatalogGift(ctx context.Context, giftID int64, value int, names map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gift_catalog (gift_id, value) VALUES (?, ?)
		 ON CONFLICT(gift_id) DO UPDATE SET value = excluded.value`, giftID, value); err != nil {
		return fmt.Errorf("upsert catalog gift: %w", err)
	}
	for locale, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gift_catalog_names (gift_id, locale, display_name) VALUES (?, ?, ?)
			 ON CONFLICT(gift_id, locale) DO UPDATE SET display_name = excluded.display_name`,
			giftID, locale, name); err != nil {
			return fmt.Errorf("upsert gift name: %w", err)
		}
	}
	return tx.Commit()
}

// SetGiftTarget marks a catalog gift as a target for the given broadcaster
// handle.
func (s *Store) SetGiftTarget(ctx context.Context, handle string, giftID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gift_target_config (handle, gift_id) VALUES (?, ?)
		 ON CONFLICT(handle, gift_id) DO NOTHING`, handle, giftID)
	if err != nil {
		return fmt.Errorf("set gift target: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (domain.Session, error) {
	var sess domain.Session
	var status, created string
	if err := r.Scan(&sess.ID, &sess.Username, &status, &created); err != nil {
		return domain.Session{}, err
	}
	sess.Status = domain.SessionStatus(status)
	sess.CreatedAt, _ = time.Parse(timeLayout, created)
	return sess, nil
}
