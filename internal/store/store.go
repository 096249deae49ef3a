// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/verte-zerg/lyritype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for sessions and high scores.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newRunID(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL UNIQUE,
			song_id TEXT NOT NULL,
			song_name TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			policy TEXT NOT NULL,
			offset_ms INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			score INTEGER NOT NULL,
			max_combo INTEGER NOT NULL,
			total_lines INTEGER NOT NULL,
			judged_lines INTEGER NOT NULL,
			perfect_lines INTEGER NOT NULL,
			avg_accuracy REAL NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_lines (
			session_id INTEGER NOT NULL,
			line_index INTEGER NOT NULL,
			expected TEXT NOT NULL,
			typed TEXT NOT NULL,
			accuracy REAL NOT NULL,
			verdict TEXT NOT NULL,
			timing_score REAL NOT NULL,
			score INTEGER NOT NULL,
			combo_after INTEGER NOT NULL,
			judged_at_ms INTEGER NOT NULL,
			target_ms INTEGER NOT NULL,
			auto INTEGER NOT NULL,
			PRIMARY KEY (session_id, line_index)
		);`,
		`CREATE TABLE IF NOT EXISTS high_scores (
			song_id TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			song_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			max_combo INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			achieved_at TEXT NOT NULL,
			PRIMARY KEY (song_id, difficulty)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_song ON sessions(song_id, difficulty);`,
		`CREATE INDEX IF NOT EXISTS idx_session_lines_verdict ON session_lines(verdict);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordSession stores a finished session and its line judgments. A run id is
// generated when rec.RunID is empty and returned either way.
func (s *Store) RecordSession(ctx context.Context, rec model.SessionRecord, lines []model.LineRecord) (runID string, err error) {
	runID = rec.RunID
	if runID == "" {
		runID = s.newRunID(rec.EndedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (run_id, song_id, song_name, difficulty, policy, offset_ms, started_at, ended_at, score, max_combo, total_lines, judged_lines, perfect_lines, avg_accuracy, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		rec.SongID,
		rec.SongName,
		rec.Difficulty,
		rec.Policy,
		rec.OffsetMs,
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		rec.Score,
		rec.MaxCombo,
		rec.TotalLines,
		rec.JudgedLines,
		rec.PerfectLines,
		rec.AvgAccuracy,
		rec.DurationMs,
	)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	if len(lines) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_lines (session_id, line_index, expected, typed, accuracy, verdict, timing_score, score, combo_after, judged_at_ms, target_ms, auto)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, ln := range lines {
			if _, err = stmt.ExecContext(ctx, id, ln.LineIndex, ln.Expected, ln.Typed, ln.Accuracy, ln.Verdict,
				ln.TimingScore, ln.Score, ln.ComboAfter, ln.JudgedAtMs, ln.TargetMs, ln.Auto); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// BestScore returns the stored high score for a song and difficulty.
func (s *Store) BestScore(ctx context.Context, songID, difficulty string) (model.ScoreRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT song_id, difficulty, song_name, score, max_combo, run_id, achieved_at
		 FROM high_scores
		 WHERE song_id = ? AND difficulty = ?`, songID, difficulty)
	rec, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoreRecord{}, false, nil
	}
	if err != nil {
		return model.ScoreRecord{}, false, err
	}
	return rec, true, nil
}

// IsHighScore reports whether score beats the stored best. Without a stored
// best any positive score qualifies.
func (s *Store) IsHighScore(ctx context.Context, songID, difficulty string, score int) (bool, error) {
	best, ok, err := s.BestScore(ctx, songID, difficulty)
	if err != nil {
		return false, err
	}
	if !ok {
		return score > 0, nil
	}
	return score > best.Score, nil
}

// SaveHighScore stores rec unless an equal or better score already exists.
func (s *Store) SaveHighScore(ctx context.Context, rec model.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO high_scores (song_id, difficulty, song_name, score, max_combo, run_id, achieved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(song_id, difficulty) DO UPDATE SET
			song_name = excluded.song_name,
			score = excluded.score,
			max_combo = excluded.max_combo,
			run_id = excluded.run_id,
			achieved_at = excluded.achieved_at
		 WHERE excluded.score > high_scores.score`,
		rec.SongID,
		rec.Difficulty,
		rec.SongName,
		rec.Score,
		rec.MaxCombo,
		rec.RunID,
		formatTime(rec.AchievedAt),
	)
	return err
}

// ListHighScores returns every stored best, optionally for one song. song
// matches the song id or, ignoring case, the song name.
func (s *Store) ListHighScores(ctx context.Context, song string) ([]model.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT song_id, difficulty, song_name, score, max_combo, run_id, achieved_at
		 FROM high_scores
		 WHERE (? = '' OR song_id = ? OR song_name = ? COLLATE NOCASE)
		 ORDER BY song_name ASC, difficulty ASC`, song, song, song)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListSessions returns session aggregates filtered by stats config, oldest
// first. Last keeps only the most recent sessions.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.SongID != "" {
		clauses = append(clauses, "(song_id = ? OR song_name = ? COLLATE NOCASE)")
		args = append(args, cfg.SongID, cfg.SongID)
	}
	if cfg.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, cfg.Difficulty)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT * FROM (
		SELECT id, run_id, song_name, difficulty, ended_at, score, max_combo, total_lines, judged_lines, perfect_lines, avg_accuracy
		FROM sessions
		WHERE %s
		ORDER BY ended_at DESC, id DESC
		LIMIT ?
	) ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &agg.RunID, &agg.SongName, &agg.Difficulty, &endedAt, &agg.Score,
			&agg.MaxCombo, &agg.TotalLines, &agg.JudgedLines, &agg.PerfectLines, &agg.AvgAccuracy); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListSessionLines returns the line judgments of one session in line order.
func (s *Store) ListSessionLines(ctx context.Context, sessionID int64) ([]model.LineRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line_index, expected, typed, accuracy, verdict, timing_score, score, combo_after, judged_at_ms, target_ms, auto
		 FROM session_lines
		 WHERE session_id = ?
		 ORDER BY line_index ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.LineRecord
	for rows.Next() {
		var ln model.LineRecord
		if err := rows.Scan(&ln.LineIndex, &ln.Expected, &ln.Typed, &ln.Accuracy, &ln.Verdict, &ln.TimingScore,
			&ln.Score, &ln.ComboAfter, &ln.JudgedAtMs, &ln.TargetMs, &ln.Auto); err != nil {
			return nil, err
		}
		result = append(result, ln)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// VerdictTotals counts line verdicts across sessions, most frequent first.
func (s *Store) VerdictTotals(ctx context.Context, sessionIDs []int64) ([]model.VerdictTotal, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT verdict, COUNT(*) AS count
		FROM session_lines
		WHERE session_id IN (%s)
		GROUP BY verdict
		ORDER BY count DESC, verdict ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.VerdictTotal
	for rows.Next() {
		var vt model.VerdictTotal
		if err := rows.Scan(&vt.Verdict, &vt.Count); err != nil {
			return nil, err
		}
		result = append(result, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (model.ScoreRecord, error) {
	var rec model.ScoreRecord
	var achievedAt string
	if err := row.Scan(&rec.SongID, &rec.Difficulty, &rec.SongName, &rec.Score, &rec.MaxCombo, &rec.RunID, &achievedAt); err != nil {
		return model.ScoreRecord{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, achievedAt)
	if err != nil {
		return model.ScoreRecord{}, err
	}
	rec.AchievedAt = parsed
	return rec, nil
}

// timeLayout keeps a fixed-width fraction so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
