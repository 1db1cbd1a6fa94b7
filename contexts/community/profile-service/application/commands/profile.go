package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "zerosum/contexts/community/profile-service/application"
	"zerosum/contexts/community/profile-service/domain/entities"
	domainerrors "zerosum/contexts/community/profile-service/domain/errors"
	"zerosum/contexts/community/profile-service/ports"
)

const defaultMaxRetries = 5

// RecordOutcomeCommand applies one settled game to a user's aggregates.
type RecordOutcomeCommand struct {
	UserID string
	GameID string
	Won    bool
}

type RegisterUserCommand struct {
	Provider       string
	ProviderUserID string
	Name           string
}

type RegisterUserResult struct {
	Profile entities.UserProfile
	Created bool
}

// ProfileUseCase owns all profile mutations. Stat updates run under optimistic
// concurrency with a bounded retry loop.
type ProfileUseCase struct {
	Profiles   ports.ProfileRepository
	Ranking    ports.RankingIndex
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	MaxRetries int
	Logger     *slog.Logger
}

// RegisterUser resolves a provider identity to a local profile, creating one
// with the starting balance on first login.
func (uc ProfileUseCase) RegisterUser(ctx context.Context, cmd RegisterUserCommand) (RegisterUserResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	provider := strings.TrimSpace(cmd.Provider)
	providerUserID := strings.TrimSpace(cmd.ProviderUserID)
	if provider == "" || providerUserID == "" {
		return RegisterUserResult{}, domainerrors.ErrInvalidProfileInput
	}
	existing, found, err := uc.Profiles.GetByProvider(ctx, provider, providerUserID)
	if err != nil {
		return RegisterUserResult{}, err
	}
	if found {
		return RegisterUserResult{Profile: existing}, nil
	}
	userID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return RegisterUserResult{}, err
	}
	now := uc.now()
	profile := entities.UserProfile{
		UserID:         userID,
		Name:           strings.TrimSpace(cmd.Name),
		Provider:       provider,
		ProviderUserID: providerUserID,
		Balance:        entities.StartingBalance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.Profiles.CreateProfile(ctx, profile); err != nil {
		return RegisterUserResult{}, err
	}
	logger.Info("profile created",
		"event", "profile_created",
		"module", "community/profile-service",
		"layer", "application",
		"user_id", userID,
		"provider", provider,
	)
	return RegisterUserResult{Profile: profile, Created: true}, nil
}

// RecordOutcome bumps resolved/won counters and win rate for one settled
// game. Concurrent settlements hitting the same profile retry on version
// conflicts; balance deltas are applied by the settlement transaction itself
// and never touched here.
func (uc ProfileUseCase) RecordOutcome(ctx context.Context, cmd RecordOutcomeCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domainerrors.ErrInvalidProfileInput
	}
	var updated entities.UserProfile
	err := uc.withRetry(ctx, func(ctx context.Context) error {
		profile, err := uc.Profiles.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		profile.GamesResolved++
		if cmd.Won {
			profile.GamesWon++
			profile.Experience += entities.WinExperience
		}
		profile.WinRate = float64(profile.GamesWon) / float64(profile.GamesResolved)
		profile.UpdatedAt = uc.now()
		if err := uc.Profiles.SaveProfile(ctx, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		logger.Error("record outcome failed",
			"event", "profile_record_outcome_failed",
			"module", "community/profile-service",
			"layer", "application",
			"user_id", userID,
			"game_id", cmd.GameID,
			"error", err.Error(),
		)
		return err
	}
	if uc.Ranking != nil && updated.Eligible() {
		if err := uc.Ranking.UpdateScore(ctx, updated.UserID, updated.WinRate); err != nil {
			// The index is a cache; the query side recomputes from storage.
			logger.Warn("ranking index update failed",
				"event", "profile_ranking_index_failed",
				"module", "community/profile-service",
				"layer", "application",
				"user_id", userID,
				"error", err.Error(),
			)
		}
	}
	logger.Info("outcome recorded",
		"event", "profile_outcome_recorded",
		"module", "community/profile-service",
		"layer", "application",
		"user_id", userID,
		"game_id", cmd.GameID,
		"won", cmd.Won,
		"games_resolved", updated.GamesResolved,
	)
	return nil
}

// AddExperience grants flat experience points for hosting or voting.
func (uc ProfileUseCase) AddExperience(ctx context.Context, userID string, points int) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || points <= 0 {
		return domainerrors.ErrInvalidProfileInput
	}
	return uc.withRetry(ctx, func(ctx context.Context) error {
		profile, err := uc.Profiles.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		profile.Experience += points
		profile.UpdatedAt = uc.now()
		return uc.Profiles.SaveProfile(ctx, profile)
	})
}

func (uc ProfileUseCase) withRetry(ctx context.Context, fn func(context.Context) error) error {
	retries := uc.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, domainerrors.ErrConflict) {
			return lastErr
		}
	}
	return domainerrors.ErrRetryExhausted
}

func (uc ProfileUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
