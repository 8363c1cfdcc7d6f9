package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"arena/internal/logging"
)

// Store handles SQLite database operations with async writes
type Store struct {
	db           *sql.DB
	path         string
	log          *slog.Logger
	writeChan    chan func(*sql.Tx) error
	healthStatus atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
	closeErr     error
}

// NewStore opens the database at path and starts the async writer. The
// schema is not created; see InitDB.
func NewStore(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = logging.Nop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// A single connection keeps the pragmas in force for every statement
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithCancel(context.Background())

	s := &Store{
		db:        db,
		path:      path,
		log:       log.With("component", "storage"),
		writeChan: make(chan func(*sql.Tx) error, 1000),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.healthStatus.Store(true)

	s.wg.Add(1)
	go s.writerLoop()

	return s, nil
}

// writerLoop processes async write operations
func (s *Store) writerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain what is already queued
			for {
				select {
				case fn := <-s.writeChan:
					if s.healthStatus.Load() {
						s.executeWrite(fn)
					}
				default:
					return
				}
			}

		case fn := <-s.writeChan:
			if !s.healthStatus.Load() {
				continue
			}
			s.executeWrite(fn)
		}
	}
}

// executeWrite runs a transactional write operation
func (s *Store) executeWrite(fn func(*sql.Tx) error) {
	tx, err := s.db.Begin()
	if err != nil {
		s.log.Error("Storage degraded: failed to begin transaction", "error", err)
		s.healthStatus.Store(false)
		return
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		s.log.Error("Storage degraded: write operation failed", "error", err)
		s.healthStatus.Store(false)
		return
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("Storage degraded: failed to commit", "error", err)
		s.healthStatus.Store(false)
	}
}

// enqueue hands fn to the writer. Writes are dropped once the store is
// degraded or the queue is full.
func (s *Store) enqueue(what string, fn func(*sql.Tx) error) error {
	if !s.healthStatus.Load() {
		return nil
	}

	select {
	case s.writeChan <- fn:
		return nil
	default:
		s.log.Warn("Storage write queue full, dropping write", "what", what)
		return nil
	}
}

// RecordMatch asynchronously records a new match
func (s *Store) RecordMatch(record MatchRecord) error {
	return s.enqueue("match", func(tx *sql.Tx) error {
		query := `INSERT INTO matches (
			match_id, initial_fen,
			white_name, white_profile, black_name, black_profile,
			move_time_ms, timeout_ms, state, reason, start_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.MatchID, record.InitialFEN,
			record.WhiteName, record.WhiteProfile, record.BlackName, record.BlackProfile,
			record.MoveTimeMs, record.TimeoutMs, record.State, record.Reason, record.StartTimeUTC,
		)
		return err
	})
}

// RecordMove asynchronously records a move
func (s *Store) RecordMove(record MoveRecord) error {
	return s.enqueue("move", func(tx *sql.Tx) error {
		query := `INSERT INTO moves (
			match_id, ply, move_uci, ponder, fen_after_move, player_color, elapsed_ms, move_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.MatchID, record.Ply, record.MoveUCI, record.Ponder,
			record.FENAfterMove, record.PlayerColor, record.ElapsedMs, record.MoveTimeUTC,
		)
		return err
	})
}

// FinishMatch asynchronously stores the result of a match
func (s *Store) FinishMatch(matchID, state, reason string, at time.Time) error {
	return s.enqueue("result", func(tx *sql.Tx) error {
		query := `UPDATE matches SET state = ?, reason = ?, end_time_utc = ? WHERE match_id = ?`
		_, err := tx.Exec(query, state, reason, at, matchID)
		return err
	})
}

// DeleteMatch removes a match and its moves
func (s *Store) DeleteMatch(matchID string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM matches WHERE match_id = ?`, matchID)
	if err != nil {
		return false, fmt.Errorf("delete failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete failed: %w", err)
	}
	return n > 0, nil
}

// Flush waits until writes queued before the call have been applied, or
// until timeout.
func (s *Store) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	marker := func(*sql.Tx) error {
		close(done)
		return nil
	}
	if !s.healthStatus.Load() {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.writeChan <- marker:
	case <-timer.C:
		return false
	}
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// IsHealthy returns the current health status
func (s *Store) IsHealthy() bool {
	return s.healthStatus.Load()
}

// Close flushes queued writes and closes the database connection. It is
// safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			s.log.Warn("Storage writer shutdown timeout, some writes may be lost")
		}

		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB closes the store and removes the database file
func (s *Store) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// ☣ DESTRUCTIVE: Removes database file
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete database file: %w", err)
		}
	}
	return nil
}

// QueryMatches retrieves matches with optional filtering. An empty or "*"
// argument matches everything.
func (s *Store) QueryMatches(matchID, player string) ([]MatchRecord, error) {
	query := `SELECT
		match_id, initial_fen,
		white_name, white_profile, black_name, black_profile,
		move_time_ms, timeout_ms, state, reason, start_time_utc, end_time_utc
	FROM matches WHERE 1=1`

	var args []any

	if matchID != "" && matchID != "*" {
		query += " AND match_id = ?"
		args = append(args, matchID)
	}

	if player != "" && player != "*" {
		query += " AND (white_name = ? OR black_name = ?)"
		args = append(args, player, player)
	}

	query += " ORDER BY start_time_utc DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var matches []MatchRecord
	for rows.Next() {
		var m MatchRecord
		err := rows.Scan(
			&m.MatchID, &m.InitialFEN,
			&m.WhiteName, &m.WhiteProfile, &m.BlackName, &m.BlackProfile,
			&m.MoveTimeMs, &m.TimeoutMs, &m.State, &m.Reason, &m.StartTimeUTC, &m.EndTimeUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return matches, nil
}

// QueryMoves returns the moves of a match in play order
func (s *Store) QueryMoves(matchID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT
		move_id, match_id, ply, move_uci, ponder, fen_after_move, player_color, elapsed_ms, move_time_utc
	FROM moves WHERE match_id = ? ORDER BY ply`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		err := rows.Scan(
			&m.MoveID, &m.MatchID, &m.Ply, &m.MoveUCI, &m.Ponder,
			&m.FENAfterMove, &m.PlayerColor, &m.ElapsedMs, &m.MoveTimeUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return moves, nil
}
