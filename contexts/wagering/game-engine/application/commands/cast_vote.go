package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "zerosum/contexts/wagering/game-engine/application"
	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	"zerosum/contexts/wagering/game-engine/domain/services"
	"zerosum/contexts/wagering/game-engine/ports"
)

// CastVoteCommand is the write-model input for vote admission.
type CastVoteCommand struct {
	UserID   string
	GameID   string
	OptionID string
	Amount   int64
}

// VoteUseCase admits votes against open games. Admission never touches
// balances: currency is only committed conceptually until settlement.
type VoteUseCase struct {
	Games  ports.GameRepository
	Votes  ports.VoteRepository
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Locks  *application.GameLocks
	Logger *slog.Logger
}

// CastVote checks preconditions in a fixed order, first failure wins:
// open game, known option, no prior (user, game) vote, stake policy. The vote
// insert and the option/game counter increments commit as one atomic unit
// under the per-game lock.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cast processing started",
		"event", "wagering_vote_cast_started",
		"module", "wagering/game-engine",
		"layer", "application",
		"user_id", strings.TrimSpace(cmd.UserID),
		"game_id", strings.TrimSpace(cmd.GameID),
	)
	if strings.TrimSpace(cmd.UserID) == "" ||
		strings.TrimSpace(cmd.GameID) == "" ||
		strings.TrimSpace(cmd.OptionID) == "" ||
		cmd.Amount < 0 {
		return entities.Vote{}, domainerrors.ErrInvalidVoteInput
	}

	release := uc.Locks.Acquire(strings.TrimSpace(cmd.GameID))
	defer release()

	now := uc.now()
	game, err := uc.Games.GetGame(ctx, strings.TrimSpace(cmd.GameID))
	if err != nil {
		return entities.Vote{}, err
	}
	if game.StatusAt(now) != entities.GameStatusOpen {
		logger.Warn("vote rejected on closed game",
			"event", "wagering_vote_game_closed",
			"module", "wagering/game-engine",
			"layer", "application",
			"user_id", strings.TrimSpace(cmd.UserID),
			"game_id", game.GameID,
		)
		return entities.Vote{}, domainerrors.ErrGameClosed
	}
	if _, ok := game.OptionByID(strings.TrimSpace(cmd.OptionID)); !ok {
		return entities.Vote{}, domainerrors.ErrUnknownOption
	}
	if _, found, err := uc.Votes.GetVoteByIdentity(ctx, game.GameID, strings.TrimSpace(cmd.UserID)); err != nil {
		return entities.Vote{}, err
	} else if found {
		return entities.Vote{}, domainerrors.ErrAlreadyVoted
	}
	if err := services.ValidateStake(game.Stakes, cmd.Amount); err != nil {
		logger.Warn("vote rejected by stake policy",
			"event", "wagering_vote_invalid_stake",
			"module", "wagering/game-engine",
			"layer", "application",
			"user_id", strings.TrimSpace(cmd.UserID),
			"game_id", game.GameID,
			"amount", cmd.Amount,
			"stake_mode", string(game.Stakes.Mode),
		)
		return entities.Vote{}, err
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	vote := entities.Vote{
		VoteID:   voteID,
		GameID:   game.GameID,
		UserID:   strings.TrimSpace(cmd.UserID),
		OptionID: strings.TrimSpace(cmd.OptionID),
		Money:    cmd.Amount,
		CastAt:   now,
	}
	if err := uc.Votes.AdmitVote(ctx, vote); err != nil {
		return entities.Vote{}, err
	}
	if err := uc.appendVoteEvent(ctx, EventVoteCast, vote, now); err != nil {
		return entities.Vote{}, err
	}

	logger.Info("vote admitted",
		"event", "wagering_vote_admitted",
		"module", "wagering/game-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"game_id", vote.GameID,
		"user_id", vote.UserID,
		"option_id", vote.OptionID,
		"amount", vote.Money,
	)
	return vote, nil
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc VoteUseCase) appendVoteEvent(
	ctx context.Context,
	eventType string,
	vote entities.Vote,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newWageringEnvelope(eventID, eventType, vote.GameID, occurredAt, map[string]any{
		"vote_id":   vote.VoteID,
		"game_id":   vote.GameID,
		"user_id":   vote.UserID,
		"option_id": vote.OptionID,
		"amount":    vote.Money,
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
