package ports

import (
	"context"
	"time"

	contractsv1 "zerosum/contracts/gen/events/v1"

	"zerosum/contexts/community/profile-service/domain/entities"
)

// EventEnvelope re-exports the canonical contract envelope so application code
// never imports the contracts package directly.
type EventEnvelope = contractsv1.Envelope

// ProfileRepository persists user profiles. SaveProfile applies an optimistic
// version check and returns domain ErrConflict when the stored version moved.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (entities.UserProfile, error)
	CreateProfile(ctx context.Context, profile entities.UserProfile) error
	SaveProfile(ctx context.Context, profile entities.UserProfile) error
	GetByProvider(ctx context.Context, provider string, providerUserID string) (entities.UserProfile, bool, error)
	ListEligible(ctx context.Context, minResolved int) ([]entities.UserProfile, error)
}

// RankedEntry is one row of the cached leaderboard index.
type RankedEntry struct {
	UserID  string
	WinRate float64
}

// RankingIndex is the ranked read cache. It is an acceleration layer; the
// query side recomputes ranks from the repository when no index is wired.
type RankingIndex interface {
	UpdateScore(ctx context.Context, userID string, winRate float64) error
	RemoveScore(ctx context.Context, userID string) error
	TopScores(ctx context.Context, limit int) ([]RankedEntry, error)
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
