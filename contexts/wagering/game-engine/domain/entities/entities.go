package entities

import "time"

type GameMode string

const (
	GameModeMajority GameMode = "majority"
	GameModeMinority GameMode = "minority"
)

type StakeMode string

const (
	StakeModeNone      StakeMode = "none"
	StakeModeFixed     StakeMode = "fixed"
	StakeModeRange     StakeMode = "range"
	StakeModeUnlimited StakeMode = "unlimited"
)

// StakePolicy constrains how much currency a single vote may commit.
// FixedAmount applies to the fixed mode; MinAmount/MaxAmount to range.
type StakePolicy struct {
	Mode        StakeMode
	FixedAmount int64
	MinAmount   int64
	MaxAmount   int64
}

type GameStatus string

const (
	GameStatusOpen     GameStatus = "open"
	GameStatusClosed   GameStatus = "closed"
	GameStatusResolved GameStatus = "resolved"
)

type Game struct {
	GameID     string
	OwnerID    string
	Topic      string
	Mode       GameMode
	Stakes     StakePolicy
	StartsAt   time.Time
	Deadline   time.Time
	Resolved   bool
	ResolvedAt *time.Time
	TotalMoney int64
	Options    []Option
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusAt derives the lifecycle state. Open -> Closed happens lazily when the
// deadline elapses; Resolved is terminal and set only by settlement.
func (g Game) StatusAt(now time.Time) GameStatus {
	if g.Resolved {
		return GameStatusResolved
	}
	if !now.Before(g.Deadline) {
		return GameStatusClosed
	}
	return GameStatusOpen
}

func (g Game) OptionByID(optionID string) (Option, bool) {
	for _, option := range g.Options {
		if option.OptionID == optionID {
			return option, true
		}
	}
	return Option{}, false
}

type Option struct {
	OptionID   string
	GameID     string
	Body       string
	Index      int
	TotalVotes int
	TotalMoney int64
	Winner     bool
}

type Vote struct {
	VoteID   string
	GameID   string
	UserID   string
	OptionID string
	Money    int64
	CastAt   time.Time

	// Outcome fields are attached exactly once at settlement.
	Resolved  bool
	Won       bool
	NetChange int64
}

type BalanceDelta struct {
	UserID string
	Delta  int64
}

// Settlement is the full, precomputed result of resolving one game. It is
// applied as a single atomic unit by the settlement repository.
type Settlement struct {
	GameID          string
	WinningOptionID string
	ResolvedAt      time.Time
	Votes           []Vote
	Deltas          []BalanceDelta
}
