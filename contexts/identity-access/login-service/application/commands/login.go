package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	domainerrors "zerosum/contexts/identity-access/login-service/domain/errors"
	"zerosum/contexts/identity-access/login-service/ports"
)

const ProviderFacebook = "facebook"

type LoginCommand struct {
	Provider    string
	AccessToken string
}

type LoginResult struct {
	UserID      string
	Name        string
	Balance     int64
	NewUser     bool
	Token       string
	TokenExpiry time.Time
}

// LoginUseCase exchanges a provider access token for a local session token,
// creating the account on first login.
type LoginUseCase struct {
	Verifiers map[string]ports.IdentityVerifier
	Accounts  ports.AccountDirectory
	Tokens    ports.TokenIssuer
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (uc LoginUseCase) Login(ctx context.Context, cmd LoginCommand) (LoginResult, error) {
	logger := resolveLogger(uc.Logger)
	provider := strings.ToLower(strings.TrimSpace(cmd.Provider))
	accessToken := strings.TrimSpace(cmd.AccessToken)
	if provider == "" || accessToken == "" {
		return LoginResult{}, domainerrors.ErrInvalidLoginInput
	}
	verifier, ok := uc.Verifiers[provider]
	if !ok {
		return LoginResult{}, domainerrors.ErrUnsupportedProvider
	}
	identity, err := verifier.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		logger.Warn("identity verification failed",
			"event", "identity_login_verify_failed",
			"module", "identity-access/login-service",
			"layer", "application",
			"provider", provider,
			"error", err.Error(),
		)
		return LoginResult{}, err
	}
	account, err := uc.Accounts.ResolveAccount(ctx, identity)
	if err != nil {
		logger.Error("account resolution failed",
			"event", "identity_login_resolve_failed",
			"module", "identity-access/login-service",
			"layer", "application",
			"provider", provider,
			"error", err.Error(),
		)
		return LoginResult{}, domainerrors.ErrRegistrationFailed
	}
	token, expiresAt, err := uc.Tokens.IssueToken(account.UserID, uc.now())
	if err != nil {
		return LoginResult{}, err
	}
	logger.Info("login succeeded",
		"event", "identity_login_succeeded",
		"module", "identity-access/login-service",
		"layer", "application",
		"provider", provider,
		"user_id", account.UserID,
		"new_user", account.Created,
	)
	return LoginResult{
		UserID:      account.UserID,
		Name:        account.Name,
		Balance:     account.Balance,
		NewUser:     account.Created,
		Token:       token,
		TokenExpiry: expiresAt,
	}, nil
}

func (uc LoginUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
