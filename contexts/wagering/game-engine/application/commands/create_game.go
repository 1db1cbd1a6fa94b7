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

// CreateGameCommand is the write-model input for game creation.
type CreateGameCommand struct {
	OwnerID  string
	Topic    string
	Options  []string
	Mode     entities.GameMode
	Stakes   entities.StakePolicy
	Deadline time.Time
}

// GameUseCase orchestrates game creation. Options are frozen at creation:
// they are never added or removed afterward, and their creation index is the
// deterministic tie-break order used at settlement.
type GameUseCase struct {
	Games  ports.GameRepository
	Outbox ports.OutboxWriter
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc GameUseCase) CreateGame(ctx context.Context, cmd CreateGameCommand) (entities.Game, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("game create processing started",
		"event", "wagering_game_create_started",
		"module", "wagering/game-engine",
		"layer", "application",
		"owner_id", strings.TrimSpace(cmd.OwnerID),
	)

	now := uc.now()
	if err := validateCreateGame(cmd, now); err != nil {
		logger.Warn("game create validation failed",
			"event", "wagering_game_create_validation_failed",
			"module", "wagering/game-engine",
			"layer", "application",
			"owner_id", strings.TrimSpace(cmd.OwnerID),
			"error", err.Error(),
		)
		return entities.Game{}, err
	}

	gameID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Game{}, err
	}
	options := make([]entities.Option, 0, len(cmd.Options))
	for index, body := range cmd.Options {
		optionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Game{}, err
		}
		options = append(options, entities.Option{
			OptionID: optionID,
			GameID:   gameID,
			Body:     strings.TrimSpace(body),
			Index:    index,
		})
	}

	game := entities.Game{
		GameID:    gameID,
		OwnerID:   strings.TrimSpace(cmd.OwnerID),
		Topic:     strings.TrimSpace(cmd.Topic),
		Mode:      cmd.Mode,
		Stakes:    cmd.Stakes,
		StartsAt:  now,
		Deadline:  cmd.Deadline.UTC(),
		Options:   options,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Games.CreateGame(ctx, game); err != nil {
		return entities.Game{}, err
	}
	if err := uc.appendGameEvent(ctx, EventGameCreated, game.GameID, now, map[string]any{
		"game_id":    game.GameID,
		"owner_id":   game.OwnerID,
		"topic":      game.Topic,
		"game_mode":  string(game.Mode),
		"stake_mode": string(game.Stakes.Mode),
		"deadline":   game.Deadline.Format(time.RFC3339),
	}); err != nil {
		return entities.Game{}, err
	}

	logger.Info("game created",
		"event", "wagering_game_created",
		"module", "wagering/game-engine",
		"layer", "application",
		"game_id", game.GameID,
		"owner_id", game.OwnerID,
		"game_mode", string(game.Mode),
		"stake_mode", string(game.Stakes.Mode),
		"options", len(game.Options),
	)
	return game, nil
}

func validateCreateGame(cmd CreateGameCommand, now time.Time) error {
	if strings.TrimSpace(cmd.OwnerID) == "" || strings.TrimSpace(cmd.Topic) == "" {
		return domainerrors.ErrInvalidGameInput
	}
	if len(cmd.Options) < 2 {
		return domainerrors.ErrInvalidGameInput
	}
	for _, body := range cmd.Options {
		if strings.TrimSpace(body) == "" {
			return domainerrors.ErrInvalidGameInput
		}
	}
	if cmd.Mode != entities.GameModeMajority && cmd.Mode != entities.GameModeMinority {
		return domainerrors.ErrInvalidGameInput
	}
	if !cmd.Deadline.After(now) {
		return domainerrors.ErrInvalidGameInput
	}
	return services.ValidateStakePolicy(cmd.Stakes)
}

func (uc GameUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc GameUseCase) appendGameEvent(
	ctx context.Context,
	eventType string,
	gameID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newWageringEnvelope(eventID, eventType, gameID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
