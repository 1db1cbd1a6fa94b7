package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	"zerosum/contexts/wagering/game-engine/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter used by tests and DSN-less local runs. It
// implements every game-engine port plus Clock and IDGenerator, mirroring the
// atomicity guarantees of the postgres adapter with one mutex.
type Store struct {
	mu sync.RWMutex

	games    map[string]entities.Game
	votes    map[string]entities.Vote
	outbox   map[string]outboxRecord
	balances map[string]int64

	// Ledger receives settlement balance deltas. When nil the store keeps
	// balances in its own map, which is what unit tests wire against.
	Ledger ports.Ledger
}

func NewStore() *Store {
	return &Store{
		games:    make(map[string]entities.Game),
		votes:    make(map[string]entities.Vote),
		outbox:   make(map[string]outboxRecord),
		balances: make(map[string]int64),
	}
}

func (s *Store) CreateGame(_ context.Context, game entities.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[game.GameID]; ok {
		return domainerrors.ErrConflict
	}
	s.games[game.GameID] = cloneGame(game)
	return nil
}

func (s *Store) GetGame(_ context.Context, gameID string) (entities.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[gameID]
	if !ok {
		return entities.Game{}, domainerrors.ErrGameNotFound
	}
	return cloneGame(game), nil
}

func (s *Store) ListDueGames(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	type due struct {
		id       string
		deadline time.Time
	}
	items := make([]due, 0)
	for _, game := range s.games {
		if game.Resolved || game.Deadline.After(now) {
			continue
		}
		items = append(items, due{id: game.GameID, deadline: game.Deadline})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].deadline.Before(items[j].deadline) })
	if len(items) > limit {
		items = items[:limit]
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.id)
	}
	return ids, nil
}

func (s *Store) AdmitVote(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[vote.GameID]
	if !ok {
		return domainerrors.ErrGameNotFound
	}
	for _, existing := range s.votes {
		if existing.GameID == vote.GameID && existing.UserID == vote.UserID {
			return domainerrors.ErrAlreadyVoted
		}
	}

	updated := false
	for i := range game.Options {
		if game.Options[i].OptionID == vote.OptionID {
			game.Options[i].TotalVotes++
			game.Options[i].TotalMoney += vote.Money
			updated = true
			break
		}
	}
	if !updated {
		return domainerrors.ErrUnknownOption
	}
	game.TotalMoney += vote.Money
	game.UpdatedAt = vote.CastAt

	s.games[game.GameID] = game
	s.votes[vote.VoteID] = vote
	return nil
}

func (s *Store) GetVoteByIdentity(_ context.Context, gameID string, userID string) (entities.Vote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, vote := range s.votes {
		if vote.GameID == gameID && vote.UserID == userID {
			return vote, true, nil
		}
	}
	return entities.Vote{}, false, nil
}

func (s *Store) ListVotesByGame(_ context.Context, gameID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.GameID == gameID {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].CastAt.Before(items[j].CastAt)
		}
		return items[i].VoteID < items[j].VoteID
	})
	return items, nil
}

// ApplySettlement is the settlement commit point: winner flags, vote
// outcomes, ledger deltas, the resolved marker, and the outbox row land in a
// single critical section so a concurrent reader never observes a partially
// resolved game.
func (s *Store) ApplySettlement(ctx context.Context, settlement entities.Settlement, event ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[settlement.GameID]
	if !ok {
		return domainerrors.ErrGameNotFound
	}
	if game.Resolved {
		return domainerrors.ErrAlreadyResolved
	}

	for i := range game.Options {
		game.Options[i].Winner = game.Options[i].OptionID == settlement.WinningOptionID
	}
	resolvedAt := settlement.ResolvedAt
	game.Resolved = true
	game.ResolvedAt = &resolvedAt
	game.UpdatedAt = resolvedAt

	for _, vote := range settlement.Votes {
		s.votes[vote.VoteID] = vote
	}
	for _, delta := range settlement.Deltas {
		if s.Ledger != nil {
			if err := s.Ledger.ApplyBalanceDelta(ctx, delta.UserID, delta.Delta); err != nil {
				return err
			}
			continue
		}
		s.balances[delta.UserID] += delta.Delta
	}
	s.games[game.GameID] = game

	return s.appendOutboxLocked(event)
}

func (s *Store) ApplyBalanceDelta(_ context.Context, userID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] += delta
	return nil
}

// Balance exposes the fallback ledger for tests.
func (s *Store) Balance(userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[userID]
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOutboxLocked(envelope)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := envelope.EventID
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneGame(game entities.Game) entities.Game {
	cloned := game
	cloned.Options = append([]entities.Option(nil), game.Options...)
	if game.ResolvedAt != nil {
		resolvedAt := *game.ResolvedAt
		cloned.ResolvedAt = &resolvedAt
	}
	return cloned
}
