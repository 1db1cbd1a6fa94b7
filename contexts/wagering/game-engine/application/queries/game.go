package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	"zerosum/contexts/wagering/game-engine/ports"
)

// GameView is the read model for a single game: per-option aggregates and,
// once resolved, winner flags.
type GameView struct {
	Game   entities.Game
	Status entities.GameStatus
}

// VoteView is the read model for a user's own vote. Outcome is populated only
// once the game is resolved and the caller asked for it.
type VoteView struct {
	Vote    entities.Vote
	Outcome *VoteOutcome
}

type VoteOutcome struct {
	Won       bool
	NetChange int64
}

type GameUseCase struct {
	Games ports.GameRepository
	Votes ports.VoteRepository
	Clock ports.Clock
}

func (uc GameUseCase) GetGame(ctx context.Context, gameID string) (GameView, error) {
	game, err := uc.Games.GetGame(ctx, strings.TrimSpace(gameID))
	if err != nil {
		return GameView{}, err
	}
	sort.Slice(game.Options, func(i, j int) bool {
		return game.Options[i].Index < game.Options[j].Index
	})
	return GameView{
		Game:   game,
		Status: game.StatusAt(uc.now()),
	}, nil
}

func (uc GameUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc GameUseCase) GetVote(ctx context.Context, userID string, gameID string, includeResult bool) (VoteView, error) {
	vote, found, err := uc.Votes.GetVoteByIdentity(ctx, strings.TrimSpace(gameID), strings.TrimSpace(userID))
	if err != nil {
		return VoteView{}, err
	}
	if !found {
		return VoteView{}, domainerrors.ErrVoteNotFound
	}
	view := VoteView{Vote: vote}
	if includeResult && vote.Resolved {
		view.Outcome = &VoteOutcome{Won: vote.Won, NetChange: vote.NetChange}
	}
	return view, nil
}
