package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	profileerrors "zerosum/contexts/community/profile-service/domain/errors"
	profilehttp "zerosum/contexts/community/profile-service/transport/http"
)

// handleGetProfile godoc
// @Summary Get a user profile with ranking and level
// @Tags community
// @Produce json
// @Param user_id path string true "user id"
// @Success 200 {object} profilehttp.ProfileResponse
// @Failure 404 {object} profilehttp.ErrorResponse
// @Router /api/v1/profiles/{user_id} [get]
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	resp, err := s.profiles.Handler.GetProfileHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeProfileDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.profiles.Handler.GetProfileHandler(r.Context(), userID)
	if err != nil {
		writeProfileDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.profiles.Handler.LeaderboardHandler(r.Context(), limit)
	if err != nil {
		writeProfileDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeProfileDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profileerrors.ErrProfileNotFound):
		writeProfileError(w, http.StatusNotFound, "profile_not_found", err)
	case errors.Is(err, profileerrors.ErrInvalidProfileInput):
		writeProfileError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, profileerrors.ErrConflict),
		errors.Is(err, profileerrors.ErrRetryExhausted):
		writeProfileError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeProfileError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, profilehttp.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}
