package httpadapter

import (
	"context"
	"log/slog"

	"zerosum/contexts/community/profile-service/application/queries"
	httptransport "zerosum/contexts/community/profile-service/transport/http"
)

type Handler struct {
	Reads  queries.ProfileUseCase
	Logger *slog.Logger
}

func (h Handler) GetProfileHandler(ctx context.Context, userID string) (httptransport.ProfileResponse, error) {
	view, err := h.Reads.GetProfile(ctx, userID)
	if err != nil {
		return httptransport.ProfileResponse{}, err
	}
	return mapProfile(view), nil
}

func (h Handler) LeaderboardHandler(ctx context.Context, limit int) (httptransport.LeaderboardResponse, error) {
	views, err := h.Reads.Leaderboard(ctx, limit)
	if err != nil {
		return httptransport.LeaderboardResponse{}, err
	}
	entries := make([]httptransport.ProfileResponse, 0, len(views))
	for _, view := range views {
		entries = append(entries, mapProfile(view))
	}
	return httptransport.LeaderboardResponse{Entries: entries}, nil
}

func mapProfile(view queries.ProfileView) httptransport.ProfileResponse {
	return httptransport.ProfileResponse{
		UserID:        view.Profile.UserID,
		Name:          view.Profile.Name,
		Balance:       view.Profile.Balance,
		GamesWon:      view.Profile.GamesWon,
		GamesResolved: view.Profile.GamesResolved,
		WinRate:       view.Profile.WinRate,
		Ranking:       view.Ranking,
		Experience:    view.Profile.Experience,
		Level:         view.Level.Level,
		LevelProgress: view.Level.Progress,
		NextMilestone: view.Level.NextMilestone,
		UpdatedAt:     view.Profile.UpdatedAt,
	}
}
