package ports

import (
	"context"
	"time"

	contractsv1 "zerosum/contracts/gen/events/v1"
	"zerosum/contexts/wagering/game-engine/domain/entities"
)

type GameRepository interface {
	CreateGame(ctx context.Context, game entities.Game) error
	// GetGame returns the game together with its ordered options.
	GetGame(ctx context.Context, gameID string) (entities.Game, error)
	// ListDueGames returns IDs of unresolved games whose deadline is at or
	// before now. The worker settles each; at-least-once delivery is fine
	// because settlement replays are no-ops.
	ListDueGames(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type VoteRepository interface {
	// AdmitVote inserts the vote and bumps the option and game aggregates as
	// one atomic unit. A (user, game) duplicate surfaces ErrAlreadyVoted.
	AdmitVote(ctx context.Context, vote entities.Vote) error
	GetVoteByIdentity(ctx context.Context, gameID string, userID string) (entities.Vote, bool, error)
	ListVotesByGame(ctx context.Context, gameID string) ([]entities.Vote, error)
}

type SettlementRepository interface {
	// ApplySettlement commits winner flags, vote outcomes, balance deltas,
	// the resolved marker, and the outbox event as one atomic unit. Partial
	// application must never be observable; a game that is already resolved
	// surfaces ErrAlreadyResolved without mutating anything.
	ApplySettlement(ctx context.Context, settlement entities.Settlement, event EventEnvelope) error
}

// Ledger is the balance side of settlement. Implementations serialize
// concurrent mutations per user (row lock or compare-and-swap retry) so two
// games settling at once cannot lose an update.
type Ledger interface {
	ApplyBalanceDelta(ctx context.Context, userID string, delta int64) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
