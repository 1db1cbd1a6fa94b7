package loginservice

import (
	"log/slog"

	httpadapter "zerosum/contexts/identity-access/login-service/adapters/http"
	"zerosum/contexts/identity-access/login-service/application/commands"
	"zerosum/contexts/identity-access/login-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Login   commands.LoginUseCase
}

type Dependencies struct {
	Verifiers map[string]ports.IdentityVerifier
	Accounts  ports.AccountDirectory
	Tokens    ports.TokenIssuer
	Clock     ports.Clock
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	loginUseCase := commands.LoginUseCase{
		Verifiers: deps.Verifiers,
		Accounts:  deps.Accounts,
		Tokens:    deps.Tokens,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Login:  loginUseCase,
			Logger: deps.Logger,
		},
		Login: loginUseCase,
	}
}
