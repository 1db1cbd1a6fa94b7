package entities

import "time"

// RankingMinResolvedGames is the eligibility threshold: below it a user has
// no global ranking at all, which callers read as "not yet ranked".
const RankingMinResolvedGames = 10

// StartingBalance seeds every account created on first login.
const StartingBalance int64 = 100

const (
	HostExperience = 10
	VoteExperience = 5
	WinExperience  = 10
)

type UserProfile struct {
	UserID         string
	Name           string
	Provider       string
	ProviderUserID string
	Balance        int64
	GamesWon       int
	GamesResolved  int
	WinRate        float64
	Experience     int

	// Version backs optimistic concurrency on stat updates; two settlements
	// finishing at once retry rather than losing an increment.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p UserProfile) Eligible() bool {
	return p.GamesResolved >= RankingMinResolvedGames
}

var levelThresholds = []int{10, 20, 50, 100, 250, 500, 800, 1250, 2000}

type LevelInfo struct {
	Level         int
	Progress      int
	NextMilestone int
}

// LevelFor walks the experience ladder; experience spent on a level does not
// count toward the next one.
func LevelFor(experience int) LevelInfo {
	info := LevelInfo{Level: 1}
	remaining := experience
	for _, required := range levelThresholds {
		if remaining >= required {
			remaining -= required
			info.Level++
			continue
		}
		info.Progress = remaining
		info.NextMilestone = required
		break
	}
	return info
}
