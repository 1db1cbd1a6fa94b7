package httptransport

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ProfileResponse struct {
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Balance       int64     `json:"balance"`
	GamesWon      int       `json:"games_won"`
	GamesResolved int       `json:"games_resolved"`
	WinRate       float64   `json:"win_rate"`
	Ranking       *int      `json:"ranking,omitempty"`
	Experience    int       `json:"experience"`
	Level         int       `json:"level"`
	LevelProgress int       `json:"level_progress"`
	NextMilestone int       `json:"next_milestone"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type LeaderboardResponse struct {
	Entries []ProfileResponse `json:"entries"`
}
