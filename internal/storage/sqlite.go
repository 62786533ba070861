package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "chorebot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const (
	channelChores    = "chores"
	channelReminders = "reminders"
)

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if s == nil || s.db == nil {
		return snap, ErrDisabled
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, frequency, interval, assignee, due_date, message_id FROM chores ORDER BY position`)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var (
			rec       ChoreRecord
			freq      sql.NullString
			interval  sql.NullInt64
			assignee  sql.NullString
			dueDate   sql.NullString
			messageID int64
		)
		if err := rows.Scan(&rec.Title, &freq, &interval, &assignee, &dueDate, &messageID); err != nil {
			_ = rows.Close()
			return Snapshot{}, err
		}
		if freq.Valid {
			rec.Schedule = &ScheduleRecord{Frequency: freq.String, Interval: int(interval.Int64)}
		}
		if assignee.Valid {
			v := assignee.String
			rec.Assignee = &v
		}
		if dueDate.Valid {
			v := dueDate.String
			rec.DueDate = &v
		}
		rec.MessageID = int(messageID)
		snap.Chores = append(snap.Chores, rec)
	}
	if err := closeRows(rows); err != nil {
		return Snapshot{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT participant, glyph, name FROM roster ORDER BY position`)
	if err != nil {
		return Snapshot{}, err
	}
	for rows.Next() {
		var (
			rec  RosterRecord
			name sql.NullString
		)
		if err := rows.Scan(&rec.Participant, &rec.Glyph, &name); err != nil {
			_ = rows.Close()
			return Snapshot{}, err
		}
		rec.Name = name.String
		snap.Roster = append(snap.Roster, rec)
	}
	if err := closeRows(rows); err != nil {
		return Snapshot{}, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT kind, chat_id, thread_id FROM channels`)
	if err != nil {
		return Snapshot{}, err
	}
	for rows.Next() {
		var (
			kind string
			ch   ChannelRecord
		)
		if err := rows.Scan(&kind, &ch.ChatID, &ch.ThreadID); err != nil {
			_ = rows.Close()
			return Snapshot{}, err
		}
		c := ch
		switch kind {
		case channelChores:
			snap.ChoreChannel = &c
		case channelReminders:
			snap.ReminderChannel = &c
		}
	}
	if err := closeRows(rows); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *sqliteStore) Save(ctx context.Context, snap Snapshot) (err error) {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"chores", "roster", "channels"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for i, c := range snap.Chores {
		var freq, interval any
		if c.Schedule != nil {
			freq, interval = c.Schedule.Frequency, c.Schedule.Interval
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chores(position, title, frequency, interval, assignee, due_date, message_id)
			 VALUES(?,?,?,?,?,?,?)`,
			i, c.Title, freq, interval, nullPtr(c.Assignee), nullPtr(c.DueDate), c.MessageID,
		); err != nil {
			return err
		}
	}
	for i, r := range snap.Roster {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO roster(position, participant, glyph, name) VALUES(?,?,?,?)`,
			i, r.Participant, r.Glyph, nullStr(r.Name),
		); err != nil {
			return err
		}
	}
	for kind, ch := range map[string]*ChannelRecord{channelChores: snap.ChoreChannel, channelReminders: snap.ReminderChannel} {
		if ch == nil {
			continue
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO channels(kind, chat_id, thread_id) VALUES(?,?,?)`,
			kind, ch.ChatID, ch.ThreadID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, actor_id, actor_username, chat_id, thread_id, action, target, detail, err)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.ActorID, nullStr(e.ActorUsername), e.ChatID, e.ThreadID,
		e.Action, nullStr(e.Target), nullStr(e.Detail), nullStr(e.Error),
	)
	return err
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
