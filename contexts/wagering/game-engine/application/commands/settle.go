package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "zerosum/contexts/wagering/game-engine/application"
	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	"zerosum/contexts/wagering/game-engine/domain/services"
	"zerosum/contexts/wagering/game-engine/ports"
)

// SettleCommand requests the one-time Closed -> Resolved transition.
type SettleCommand struct {
	GameID string
}

// SettleResult carries the settlement and a replay marker the transport layer
// maps to API semantics. Replayed means the game was already resolved and the
// stored result is returned unchanged, with no mutation performed.
type SettleResult struct {
	Settlement entities.Settlement
	Replayed   bool
}

// SettleUseCase drives settlement. Safe to invoke concurrently and
// repeatedly: the per-game lock admits one execution, and the repository
// rejects a second resolution at the storage level, so an at-least-once
// scheduler or a crash retry can only ever apply the result once.
type SettleUseCase struct {
	Games       ports.GameRepository
	Votes       ports.VoteRepository
	Settlements ports.SettlementRepository
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Locks       *application.GameLocks
	Logger      *slog.Logger
}

func (uc SettleUseCase) Settle(ctx context.Context, cmd SettleCommand) (SettleResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	gameID := strings.TrimSpace(cmd.GameID)
	if gameID == "" {
		return SettleResult{}, domainerrors.ErrInvalidGameInput
	}
	logger.Info("settlement processing started",
		"event", "wagering_settle_started",
		"module", "wagering/game-engine",
		"layer", "application",
		"game_id", gameID,
	)

	release := uc.Locks.Acquire(gameID)
	defer release()

	now := uc.now()
	game, err := uc.Games.GetGame(ctx, gameID)
	if err != nil {
		return SettleResult{}, err
	}
	switch game.StatusAt(now) {
	case entities.GameStatusResolved:
		return uc.replayStored(ctx, logger, game)
	case entities.GameStatusOpen:
		return SettleResult{}, domainerrors.ErrNotReady
	}

	votes, err := uc.Votes.ListVotesByGame(ctx, gameID)
	if err != nil {
		return SettleResult{}, err
	}
	settlement, err := services.ComputeSettlement(game, votes, now)
	if err != nil {
		logger.Error("settlement computation failed",
			"event", "wagering_settle_compute_failed",
			"module", "wagering/game-engine",
			"layer", "application",
			"game_id", gameID,
			"error", err.Error(),
		)
		return SettleResult{}, err
	}

	envelope, err := uc.newResolvedEvent(ctx, settlement, game)
	if err != nil {
		return SettleResult{}, err
	}
	if err := uc.Settlements.ApplySettlement(ctx, settlement, envelope); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyResolved) {
			// Another process resolved the game between our read and write.
			stored, readErr := uc.Games.GetGame(ctx, gameID)
			if readErr != nil {
				return SettleResult{}, readErr
			}
			return uc.replayStored(ctx, logger, stored)
		}
		return SettleResult{}, err
	}

	logger.Info("game resolved",
		"event", "wagering_game_resolved",
		"module", "wagering/game-engine",
		"layer", "application",
		"game_id", gameID,
		"winning_option_id", settlement.WinningOptionID,
		"votes", len(settlement.Votes),
		"total_money", game.TotalMoney,
	)
	return SettleResult{Settlement: settlement}, nil
}

// replayStored rebuilds the settlement from persisted state. Outcomes were
// attached exactly once at resolution, so this read mutates nothing.
func (uc SettleUseCase) replayStored(
	ctx context.Context,
	logger *slog.Logger,
	game entities.Game,
) (SettleResult, error) {
	votes, err := uc.Votes.ListVotesByGame(ctx, game.GameID)
	if err != nil {
		return SettleResult{}, err
	}
	winningOptionID := ""
	for _, option := range game.Options {
		if option.Winner {
			winningOptionID = option.OptionID
			break
		}
	}
	resolvedAt := time.Time{}
	if game.ResolvedAt != nil {
		resolvedAt = *game.ResolvedAt
	}
	deltas := make([]entities.BalanceDelta, 0, len(votes))
	for _, vote := range votes {
		if vote.NetChange == 0 {
			continue
		}
		deltas = append(deltas, entities.BalanceDelta{UserID: vote.UserID, Delta: vote.NetChange})
	}
	logger.Info("settlement replayed",
		"event", "wagering_settle_replayed",
		"module", "wagering/game-engine",
		"layer", "application",
		"game_id", game.GameID,
		"winning_option_id", winningOptionID,
	)
	return SettleResult{
		Settlement: entities.Settlement{
			GameID:          game.GameID,
			WinningOptionID: winningOptionID,
			ResolvedAt:      resolvedAt,
			Votes:           votes,
			Deltas:          deltas,
		},
		Replayed: true,
	}, nil
}

func (uc SettleUseCase) newResolvedEvent(
	ctx context.Context,
	settlement entities.Settlement,
	game entities.Game,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	outcomes := make([]map[string]any, 0, len(settlement.Votes))
	for _, vote := range settlement.Votes {
		outcomes = append(outcomes, map[string]any{
			"user_id":    vote.UserID,
			"won":        vote.Won,
			"net_change": vote.NetChange,
			"amount":     vote.Money,
		})
	}
	return newWageringEnvelope(eventID, EventGameResolved, settlement.GameID, settlement.ResolvedAt, map[string]any{
		"game_id":           settlement.GameID,
		"owner_id":          game.OwnerID,
		"topic":             game.Topic,
		"winning_option_id": settlement.WinningOptionID,
		"stake_mode":        string(game.Stakes.Mode),
		"outcomes":          outcomes,
	})
}

func (uc SettleUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
