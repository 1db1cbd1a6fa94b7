package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	wageringerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	wageringhttp "zerosum/contexts/wagering/game-engine/transport/http"
)

// handleCreateGame godoc
// @Summary Create a game
// @Tags wagering
// @Accept json
// @Produce json
// @Param request body wageringhttp.CreateGameRequest true "game definition"
// @Success 200 {object} wageringhttp.GameResponse
// @Failure 400 {object} wageringhttp.ErrorResponse
// @Router /api/v1/games [post]
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req wageringhttp.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.wagering.Handler.CreateGameHandler(r.Context(), userID, req)
	if err != nil {
		writeWageringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	resp, err := s.wagering.Handler.GetGameHandler(r.Context(), r.PathValue("game_id"))
	if err != nil {
		writeWageringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCastVote godoc
// @Summary Cast a vote on an open game
// @Tags wagering
// @Accept json
// @Produce json
// @Param game_id path string true "game id"
// @Param request body wageringhttp.CastVoteRequest true "vote"
// @Success 200 {object} wageringhttp.VoteResponse
// @Failure 409 {object} wageringhttp.ErrorResponse
// @Router /api/v1/games/{game_id}/votes [post]
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req wageringhttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.wagering.Handler.CastVoteHandler(r.Context(), userID, r.PathValue("game_id"), req)
	if err != nil {
		writeWageringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOwnVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	includeResult := r.URL.Query().Get("include_result") == "true"
	resp, err := s.wagering.Handler.GetVoteHandler(r.Context(), userID, r.PathValue("game_id"), includeResult)
	if err != nil {
		writeWageringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettleGame(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	resp, err := s.wagering.Handler.SettleGameHandler(r.Context(), r.PathValue("game_id"))
	if err != nil {
		writeWageringDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeWageringDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wageringerrors.ErrInvalidGameInput),
		errors.Is(err, wageringerrors.ErrInvalidVoteInput):
		writeWageringError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, wageringerrors.ErrGameNotFound),
		errors.Is(err, wageringerrors.ErrVoteNotFound):
		writeWageringError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, wageringerrors.ErrGameClosed):
		writeWageringError(w, http.StatusConflict, "game_closed", err)
	case errors.Is(err, wageringerrors.ErrUnknownOption):
		writeWageringError(w, http.StatusUnprocessableEntity, "unknown_option", err)
	case errors.Is(err, wageringerrors.ErrAlreadyVoted):
		writeWageringError(w, http.StatusConflict, "already_voted", err)
	case errors.Is(err, wageringerrors.ErrInvalidStake):
		writeWageringError(w, http.StatusUnprocessableEntity, "invalid_stake", err)
	case errors.Is(err, wageringerrors.ErrNotReady):
		writeWageringError(w, http.StatusConflict, "not_ready", err)
	case errors.Is(err, wageringerrors.ErrConflict):
		writeWageringError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, wageringerrors.ErrStorageUnavailable):
		writeWageringError(w, http.StatusServiceUnavailable, "storage_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeWageringError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, wageringhttp.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}
