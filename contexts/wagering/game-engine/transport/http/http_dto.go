package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateGameRequest struct {
	Topic     string   `json:"topic"`
	Options   []string `json:"options"`
	GameMode  string   `json:"game_mode"`
	StakeMode string   `json:"stake_mode"`
	// Stake policy parameters; which ones apply depends on stake_mode.
	StakeAmount int64     `json:"stake_amount,omitempty"`
	StakeMin    int64     `json:"stake_min,omitempty"`
	StakeMax    int64     `json:"stake_max,omitempty"`
	Deadline    time.Time `json:"deadline"`
}

type OptionResponse struct {
	OptionID   string `json:"option_id"`
	Body       string `json:"body"`
	Index      int    `json:"index"`
	TotalVotes int    `json:"total_votes"`
	TotalMoney int64  `json:"total_money"`
	Winner     *bool  `json:"winner,omitempty"`
}

type GameResponse struct {
	GameID      string           `json:"game_id"`
	OwnerID     string           `json:"owner_id"`
	Topic       string           `json:"topic"`
	GameMode    string           `json:"game_mode"`
	StakeMode   string           `json:"stake_mode"`
	StakeAmount int64            `json:"stake_amount,omitempty"`
	StakeMin    int64            `json:"stake_min,omitempty"`
	StakeMax    int64            `json:"stake_max,omitempty"`
	Status      string           `json:"status"`
	Deadline    time.Time        `json:"deadline"`
	TotalMoney  int64            `json:"total_money"`
	Options     []OptionResponse `json:"options"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
	Amount   int64  `json:"amount"`
}

type VoteResponse struct {
	VoteID   string    `json:"vote_id"`
	GameID   string    `json:"game_id"`
	UserID   string    `json:"user_id"`
	OptionID string    `json:"option_id"`
	Amount   int64     `json:"amount"`
	CastAt   time.Time `json:"cast_at"`
}

type VoteResultResponse struct {
	Won       bool  `json:"won"`
	NetChange int64 `json:"net_change"`
}

type VoteViewResponse struct {
	VoteID   string              `json:"vote_id"`
	GameID   string              `json:"game_id"`
	OptionID string              `json:"option_id"`
	Amount   int64               `json:"amount"`
	CastAt   time.Time           `json:"cast_at"`
	Result   *VoteResultResponse `json:"result,omitempty"`
}

type SettleResponse struct {
	GameID          string    `json:"game_id"`
	WinningOptionID string    `json:"winning_option_id"`
	ResolvedAt      time.Time `json:"resolved_at"`
	Replayed        bool      `json:"replayed"`
}
