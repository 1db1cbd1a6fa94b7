package httpadapter

import (
	"context"
	"log/slog"

	"zerosum/contexts/identity-access/login-service/application/commands"
	httptransport "zerosum/contexts/identity-access/login-service/transport/http"
)

type Handler struct {
	Login  commands.LoginUseCase
	Logger *slog.Logger
}

func (h Handler) LoginHandler(ctx context.Context, req httptransport.LoginRequest) (httptransport.LoginResponse, error) {
	result, err := h.Login.Login(ctx, commands.LoginCommand{
		Provider:    req.Provider,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		return httptransport.LoginResponse{}, err
	}
	return httptransport.LoginResponse{
		UserID:      result.UserID,
		Name:        result.Name,
		Balance:     result.Balance,
		NewUser:     result.NewUser,
		Token:       result.Token,
		TokenExpiry: result.TokenExpiry,
	}, nil
}
