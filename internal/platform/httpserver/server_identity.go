package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	identityerrors "zerosum/contexts/identity-access/login-service/domain/errors"
	identityhttp "zerosum/contexts/identity-access/login-service/transport/http"
)

// handleLogin godoc
// @Summary Exchange a provider access token for a session token
// @Tags identity
// @Accept json
// @Produce json
// @Param request body identityhttp.LoginRequest true "provider credentials"
// @Success 200 {object} identityhttp.LoginResponse
// @Failure 401 {object} identityhttp.ErrorResponse
// @Router /api/v1/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req identityhttp.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.identity.Handler.LoginHandler(r.Context(), req)
	if err != nil {
		writeIdentityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeIdentityDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identityerrors.ErrInvalidLoginInput),
		errors.Is(err, identityerrors.ErrUnsupportedProvider):
		writeIdentityError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, identityerrors.ErrInvalidCredentials):
		writeIdentityError(w, http.StatusUnauthorized, "invalid_credentials", err)
	case errors.Is(err, identityerrors.ErrProviderUnavailable):
		writeIdentityError(w, http.StatusBadGateway, "provider_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeIdentityError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, identityhttp.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}
