package storage

import (
	"database/sql"
	"time"
)

// MatchRecord represents a row in the matches table
type MatchRecord struct {
	MatchID      string       `db:"match_id"`
	InitialFEN   string       `db:"initial_fen"`
	WhiteName    string       `db:"white_name"`
	WhiteProfile string       `db:"white_profile"`
	BlackName    string       `db:"black_name"`
	BlackProfile string       `db:"black_profile"`
	MoveTimeMs   int64        `db:"move_time_ms"`
	TimeoutMs    int64        `db:"timeout_ms"`
	State        string       `db:"state"`
	Reason       string       `db:"reason"`
	StartTimeUTC time.Time    `db:"start_time_utc"`
	EndTimeUTC   sql.NullTime `db:"end_time_utc"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID       int64     `db:"move_id"`
	MatchID      string    `db:"match_id"`
	Ply          int       `db:"ply"`
	MoveUCI      string    `db:"move_uci"`
	Ponder       string    `db:"ponder"`
	FENAfterMove string    `db:"fen_after_move"`
	PlayerColor  string    `db:"player_color"` // "w" or "b"
	ElapsedMs    int64     `db:"elapsed_ms"`
	MoveTimeUTC  time.Time `db:"move_time_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS matches (
	match_id TEXT PRIMARY KEY,
	initial_fen TEXT NOT NULL,
	white_name TEXT NOT NULL,
	white_profile TEXT NOT NULL,
	black_name TEXT NOT NULL,
	black_profile TEXT NOT NULL,
	move_time_ms INTEGER NOT NULL DEFAULT 1000,
	timeout_ms INTEGER NOT NULL DEFAULT 2000,
	state TEXT NOT NULL DEFAULT 'ongoing',
	reason TEXT NOT NULL DEFAULT '',
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	end_time_utc DATETIME
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id TEXT NOT NULL,
	ply INTEGER NOT NULL,
	move_uci TEXT NOT NULL,
	ponder TEXT NOT NULL DEFAULT '',
	fen_after_move TEXT NOT NULL DEFAULT '',
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (match_id) REFERENCES matches(match_id) ON DELETE CASCADE,
	UNIQUE(match_id, ply)
);

CREATE INDEX IF NOT EXISTS idx_moves_match_id ON moves(match_id);
CREATE INDEX IF NOT EXISTS idx_matches_white_name ON matches(white_name);
CREATE INDEX IF NOT EXISTS idx_matches_black_name ON matches(black_name);
`
