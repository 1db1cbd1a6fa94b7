package httpadapter

import (
	"context"
	"log/slog"

	"zerosum/contexts/wagering/game-engine/application/commands"
	"zerosum/contexts/wagering/game-engine/application/queries"
	"zerosum/contexts/wagering/game-engine/domain/entities"
	httptransport "zerosum/contexts/wagering/game-engine/transport/http"
)

type Handler struct {
	Games  commands.GameUseCase
	Votes  commands.VoteUseCase
	Settle commands.SettleUseCase
	Reads  queries.GameUseCase
	Logger *slog.Logger
}

func (h Handler) CreateGameHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreateGameRequest,
) (httptransport.GameResponse, error) {
	game, err := h.Games.CreateGame(ctx, commands.CreateGameCommand{
		OwnerID: userID,
		Topic:   req.Topic,
		Options: req.Options,
		Mode:    entities.GameMode(req.GameMode),
		Stakes: entities.StakePolicy{
			Mode:        entities.StakeMode(req.StakeMode),
			FixedAmount: req.StakeAmount,
			MinAmount:   req.StakeMin,
			MaxAmount:   req.StakeMax,
		},
		Deadline: req.Deadline,
	})
	if err != nil {
		return httptransport.GameResponse{}, err
	}
	return mapGame(game, entities.GameStatusOpen), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	userID string,
	gameID string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	vote, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID:   userID,
		GameID:   gameID,
		OptionID: req.OptionID,
		Amount:   req.Amount,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		VoteID:   vote.VoteID,
		GameID:   vote.GameID,
		UserID:   vote.UserID,
		OptionID: vote.OptionID,
		Amount:   vote.Money,
		CastAt:   vote.CastAt,
	}, nil
}

func (h Handler) SettleGameHandler(ctx context.Context, gameID string) (httptransport.SettleResponse, error) {
	result, err := h.Settle.Settle(ctx, commands.SettleCommand{GameID: gameID})
	if err != nil {
		return httptransport.SettleResponse{}, err
	}
	return httptransport.SettleResponse{
		GameID:          result.Settlement.GameID,
		WinningOptionID: result.Settlement.WinningOptionID,
		ResolvedAt:      result.Settlement.ResolvedAt,
		Replayed:        result.Replayed,
	}, nil
}

func (h Handler) GetGameHandler(ctx context.Context, gameID string) (httptransport.GameResponse, error) {
	view, err := h.Reads.GetGame(ctx, gameID)
	if err != nil {
		return httptransport.GameResponse{}, err
	}
	return mapGame(view.Game, view.Status), nil
}

func (h Handler) GetVoteHandler(
	ctx context.Context,
	userID string,
	gameID string,
	includeResult bool,
) (httptransport.VoteViewResponse, error) {
	view, err := h.Reads.GetVote(ctx, userID, gameID, includeResult)
	if err != nil {
		return httptransport.VoteViewResponse{}, err
	}
	resp := httptransport.VoteViewResponse{
		VoteID:   view.Vote.VoteID,
		GameID:   view.Vote.GameID,
		OptionID: view.Vote.OptionID,
		Amount:   view.Vote.Money,
		CastAt:   view.Vote.CastAt,
	}
	if view.Outcome != nil {
		resp.Result = &httptransport.VoteResultResponse{
			Won:       view.Outcome.Won,
			NetChange: view.Outcome.NetChange,
		}
	}
	return resp, nil
}

func mapGame(game entities.Game, status entities.GameStatus) httptransport.GameResponse {
	options := make([]httptransport.OptionResponse, 0, len(game.Options))
	for _, option := range game.Options {
		item := httptransport.OptionResponse{
			OptionID:   option.OptionID,
			Body:       option.Body,
			Index:      option.Index,
			TotalVotes: option.TotalVotes,
			TotalMoney: option.TotalMoney,
		}
		if game.Resolved {
			winner := option.Winner
			item.Winner = &winner
		}
		options = append(options, item)
	}
	return httptransport.GameResponse{
		GameID:      game.GameID,
		OwnerID:     game.OwnerID,
		Topic:       game.Topic,
		GameMode:    string(game.Mode),
		StakeMode:   string(game.Stakes.Mode),
		StakeAmount: game.Stakes.FixedAmount,
		StakeMin:    game.Stakes.MinAmount,
		StakeMax:    game.Stakes.MaxAmount,
		Status:      string(status),
		Deadline:    game.Deadline,
		TotalMoney:  game.TotalMoney,
		Options:     options,
		ResolvedAt:  game.ResolvedAt,
	}
}
