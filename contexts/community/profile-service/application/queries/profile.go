package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	application "zerosum/contexts/community/profile-service/application"
	"zerosum/contexts/community/profile-service/domain/entities"
	domainerrors "zerosum/contexts/community/profile-service/domain/errors"
	"zerosum/contexts/community/profile-service/ports"
)

const defaultLeaderboardLimit = 50

// ProfileView is a profile plus its derived read-side fields. Ranking is nil
// while the user sits below the eligibility threshold.
type ProfileView struct {
	Profile entities.UserProfile
	Ranking *int
	Level   entities.LevelInfo
}

type ProfileUseCase struct {
	Profiles ports.ProfileRepository
	Ranking  ports.RankingIndex
	Logger   *slog.Logger
}

func (uc ProfileUseCase) GetProfile(ctx context.Context, userID string) (ProfileView, error) {
	profile, err := uc.Profiles.GetProfile(ctx, strings.TrimSpace(userID))
	if err != nil {
		return ProfileView{}, err
	}
	view := ProfileView{
		Profile: profile,
		Level:   entities.LevelFor(profile.Experience),
	}
	if !profile.Eligible() {
		return view, nil
	}
	rank, err := uc.rankOf(ctx, profile.UserID)
	if err != nil {
		return ProfileView{}, err
	}
	if rank > 0 {
		view.Ranking = &rank
	}
	return view, nil
}

// Leaderboard returns the top eligible profiles ordered by win rate, user ID
// breaking ties. When the ranking index is wired it supplies the candidate
// set; candidates are re-hydrated and re-sorted from storage so ordering
// stays deterministic regardless of how the cache orders equal scores.
func (uc ProfileUseCase) Leaderboard(ctx context.Context, limit int) ([]ProfileView, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	eligible, err := uc.leaderboardCandidates(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	views := make([]ProfileView, 0, len(eligible))
	for i, profile := range eligible {
		rank := i + 1
		views = append(views, ProfileView{
			Profile: profile,
			Ranking: &rank,
			Level:   entities.LevelFor(profile.Experience),
		})
	}
	return views, nil
}

func (uc ProfileUseCase) leaderboardCandidates(ctx context.Context, limit int) ([]entities.UserProfile, error) {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Ranking != nil {
		// Over-fetch so equal scores at the cutoff cannot drop a profile that
		// the deterministic tie-break would keep.
		cached, err := uc.Ranking.TopScores(ctx, limit*2)
		if err != nil {
			logger.Warn("ranking index read failed",
				"event", "profile_ranking_read_failed",
				"module", "community/profile-service",
				"layer", "application",
				"error", err.Error(),
			)
		} else if len(cached) > 0 {
			profiles := make([]entities.UserProfile, 0, len(cached))
			for _, entry := range cached {
				profile, err := uc.Profiles.GetProfile(ctx, entry.UserID)
				if err != nil {
					logger.Warn("ranking candidate hydration failed",
						"event", "profile_ranking_hydrate_failed",
						"module", "community/profile-service",
						"layer", "application",
						"user_id", entry.UserID,
						"error", err.Error(),
					)
					continue
				}
				if profile.Eligible() {
					profiles = append(profiles, profile)
				}
			}
			sortRanked(profiles)
			return profiles, nil
		}
	}
	return uc.eligibleRanked(ctx)
}

func (uc ProfileUseCase) rankOf(ctx context.Context, userID string) (int, error) {
	eligible, err := uc.eligibleRanked(ctx)
	if err != nil {
		return 0, err
	}
	for i, profile := range eligible {
		if profile.UserID == userID {
			return i + 1, nil
		}
	}
	return 0, domainerrors.ErrProfileNotFound
}

func (uc ProfileUseCase) eligibleRanked(ctx context.Context) ([]entities.UserProfile, error) {
	eligible, err := uc.Profiles.ListEligible(ctx, entities.RankingMinResolvedGames)
	if err != nil {
		return nil, err
	}
	sortRanked(eligible)
	return eligible, nil
}

func sortRanked(profiles []entities.UserProfile) {
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].WinRate != profiles[j].WinRate {
			return profiles[i].WinRate > profiles[j].WinRate
		}
		return profiles[i].UserID < profiles[j].UserID
	})
}
