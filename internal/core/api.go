package core

import "time"

// Request types

type CreateMatchRequest struct {
	White    string `json:"white" validate:"required,max=255"` // engine profile path
	Black    string `json:"black" validate:"required,max=255"`
	Referee  string `json:"referee,omitempty" validate:"omitempty,max=255"`
	MoveTime int    `json:"moveTime,omitempty" validate:"omitempty,min=10,max=600000"` // soft budget, ms
	Timeout  int    `json:"timeout,omitempty" validate:"omitempty,min=10,max=1200000"` // hard deadline, ms
	MaxPlies int    `json:"maxPlies,omitempty" validate:"omitempty,min=1,max=2000"`
	FEN      string `json:"fen,omitempty" validate:"omitempty,max=100"`
}

// Response types

type MatchResponse struct {
	MatchID    string     `json:"matchId"`
	Status     string     `json:"status"` // "queued", "running", "finished", "failed"
	White      string     `json:"white"`
	Black      string     `json:"black"`
	InitialFEN string     `json:"initialFen"`
	FEN        string     `json:"fen,omitempty"`
	State      string     `json:"state"` // "ongoing", "white_wins", etc
	Result     string     `json:"result"`
	Reason     string     `json:"reason,omitempty"`
	Error      string     `json:"error,omitempty"`
	Moves      []string   `json:"moves"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
