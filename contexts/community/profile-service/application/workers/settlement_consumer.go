package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "zerosum/contexts/community/profile-service/application"
	"zerosum/contexts/community/profile-service/application/commands"
	"zerosum/contexts/community/profile-service/domain/entities"
	domainerrors "zerosum/contexts/community/profile-service/domain/errors"
	"zerosum/contexts/community/profile-service/ports"
)

const (
	gameCreatedTopic  = "game.created"
	voteCastTopic     = "vote.cast"
	gameResolvedTopic = "game.resolved"
	defaultProfileCG  = "profile-service-wagering-cg"
)

// SettlementConsumer projects wagering lifecycle events onto user profiles:
// hosting and voting grant experience, resolution updates win aggregates.
type SettlementConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Profiles      commands.ProfileUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c SettlementConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultProfileCG
	}
	subscriptions := []struct {
		topic   string
		handler func(context.Context, ports.EventEnvelope) error
	}{
		{gameCreatedTopic, c.handleGameCreated},
		{voteCastTopic, c.handleVoteCast},
		{gameResolvedTopic, c.handleGameResolved},
	}
	for _, sub := range subscriptions {
		if err := c.Subscriber.Subscribe(ctx, sub.topic, group, sub.handler); err != nil {
			logger.Error("profile consumer subscribe failed",
				"event", "profile_consumer_subscribe_failed",
				"module", "community/profile-service",
				"layer", "worker",
				"topic", sub.topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("profile consumer subscriptions active",
		"event", "profile_consumer_started",
		"module", "community/profile-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c SettlementConsumer) handleGameCreated(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil || replayed {
		return err
	}
	var payload struct {
		GameID  string `json:"game_id"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("game.created payload decode failed",
			"event", "profile_game_created_decode_failed",
			"module", "community/profile-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if err := c.Profiles.AddExperience(ctx, payload.OwnerID, entities.HostExperience); err != nil {
		// Hosts without a local profile earn nothing yet; their account shows
		// up on first login and accrues from there.
		if errorsIsNotFound(err) {
			return nil
		}
		return err
	}
	logger.Info("game.created consumed",
		"event", "profile_game_created_consumed",
		"module", "community/profile-service",
		"layer", "worker",
		"event_id", event.EventID,
		"game_id", payload.GameID,
		"owner_id", payload.OwnerID,
	)
	return nil
}

func (c SettlementConsumer) handleVoteCast(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil || replayed {
		return err
	}
	var payload struct {
		GameID string `json:"game_id"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("vote.cast payload decode failed",
			"event", "profile_vote_cast_decode_failed",
			"module", "community/profile-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if err := c.Profiles.AddExperience(ctx, payload.UserID, entities.VoteExperience); err != nil {
		if errorsIsNotFound(err) {
			return nil
		}
		return err
	}
	logger.Info("vote.cast consumed",
		"event", "profile_vote_cast_consumed",
		"module", "community/profile-service",
		"layer", "worker",
		"event_id", event.EventID,
		"game_id", payload.GameID,
		"user_id", payload.UserID,
	)
	return nil
}

func (c SettlementConsumer) handleGameResolved(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil || replayed {
		return err
	}
	var payload struct {
		GameID   string `json:"game_id"`
		Outcomes []struct {
			UserID string `json:"user_id"`
			Won    bool   `json:"won"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("game.resolved payload decode failed",
			"event", "profile_game_resolved_decode_failed",
			"module", "community/profile-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	for _, outcome := range payload.Outcomes {
		err := c.Profiles.RecordOutcome(ctx, commands.RecordOutcomeCommand{
			UserID: outcome.UserID,
			GameID: payload.GameID,
			Won:    outcome.Won,
		})
		if err != nil && !errorsIsNotFound(err) {
			return err
		}
	}
	logger.Info("game.resolved consumed",
		"event", "profile_game_resolved_consumed",
		"module", "community/profile-service",
		"layer", "worker",
		"event_id", event.EventID,
		"game_id", payload.GameID,
		"outcomes", len(payload.Outcomes),
	)
	return nil
}

func (c SettlementConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	replayed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("profile event dedupe failed",
			"event", "profile_event_dedupe_failed",
			"module", "community/profile-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	if replayed {
		logger.Debug("event replay skipped",
			"event", "profile_event_replayed",
			"module", "community/profile-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return replayed, nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, domainerrors.ErrProfileNotFound)
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (c SettlementConsumer) now() time.Time {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	return now
}

func (c SettlementConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
