package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	profileservice "zerosum/contexts/community/profile-service"
	profilecommands "zerosum/contexts/community/profile-service/application/commands"
	profileports "zerosum/contexts/community/profile-service/ports"
	loginservice "zerosum/contexts/identity-access/login-service"
	loginmemory "zerosum/contexts/identity-access/login-service/adapters/memory"
	loginports "zerosum/contexts/identity-access/login-service/ports"
	gameengine "zerosum/contexts/wagering/game-engine"
	wageringmemory "zerosum/contexts/wagering/game-engine/adapters/memory"
	wageringhttp "zerosum/contexts/wagering/game-engine/transport/http"
	"zerosum/internal/platform/auth"
	"zerosum/internal/platform/httpserver"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type noopSubscriber struct{}

func (noopSubscriber) Subscribe(context.Context, string, string, func(context.Context, profileports.EventEnvelope) error) error {
	return nil
}

type accountDirectory struct {
	profiles profilecommands.ProfileUseCase
}

func (d accountDirectory) ResolveAccount(ctx context.Context, identity loginports.Identity) (loginports.Account, error) {
	result, err := d.profiles.RegisterUser(ctx, profilecommands.RegisterUserCommand{
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
		Name:           identity.Name,
	})
	if err != nil {
		return loginports.Account{}, err
	}
	return loginports.Account{
		UserID:  result.Profile.UserID,
		Name:    result.Profile.Name,
		Balance: result.Profile.Balance,
		Created: result.Created,
	}, nil
}

type tokenIssuer struct {
	manager *auth.Manager
}

func (i tokenIssuer) IssueToken(userID string, now time.Time) (string, time.Time, error) {
	return i.manager.Sign(userID, now)
}

type testEnv struct {
	handler  http.Handler
	clock    *fakeClock
	verifier *loginmemory.Verifier
	wagering gameengine.Module
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	profiles := profileservice.NewInMemoryModule(noopSubscriber{}, nil)

	wageringStore := wageringmemory.NewStore()
	wageringStore.Ledger = profiles.Store
	wagering := gameengine.NewModule(gameengine.Dependencies{
		Games:       wageringStore,
		Votes:       wageringStore,
		Settlements: wageringStore,
		Outbox:      wageringStore,
		Clock:       clock,
		IDGen:       wageringStore,
	})
	wagering.Store = wageringStore

	manager, err := auth.NewManager("test-secret", "zerosum", time.Hour)
	if err != nil {
		t.Fatalf("new auth manager failed: %v", err)
	}
	providerVerifier := loginmemory.NewVerifier()
	identity := loginservice.NewModule(loginservice.Dependencies{
		Verifiers: map[string]loginports.IdentityVerifier{"facebook": providerVerifier},
		Accounts:  accountDirectory{profiles: profiles.Profiles},
		Tokens:    tokenIssuer{manager: manager},
		Clock:     clock,
	})

	server := httpserver.New(wagering, profiles, identity, manager, nil, ":0")
	return testEnv{
		handler:  server.Handler(),
		clock:    clock,
		verifier: providerVerifier,
		wagering: wagering,
	}
}

func (env testEnv) do(t *testing.T, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeAs[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(recorder.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (env testEnv) login(t *testing.T, accessToken string, providerUserID string, name string) (string, string) {
	t.Helper()
	env.verifier.Register(accessToken, loginports.Identity{
		Provider:       "facebook",
		ProviderUserID: providerUserID,
		Name:           name,
	})
	recorder := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"provider":     "facebook",
		"access_token": accessToken,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var resp struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.UserID, resp.Token
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.do(t, http.MethodPost, "/api/v1/games", "", map[string]any{"topic": "x"})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("missing token returned %d", recorder.Code)
	}

	recorder = env.do(t, http.MethodPost, "/api/v1/games", "garbage-token", map[string]any{"topic": "x"})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad token returned %d", recorder.Code)
	}
	errResp := decodeAs[map[string]string](t, recorder)
	if errResp["code"] != "token_invalid" {
		t.Fatalf("error code %q, want token_invalid", errResp["code"])
	}
}

func TestLoginRejectsUnknownCredentials(t *testing.T) {
	env := newTestEnv(t)
	recorder := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"provider":     "facebook",
		"access_token": "never-registered",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unknown credentials returned %d", recorder.Code)
	}

	recorder = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"provider":     "myspace",
		"access_token": "whatever",
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unsupported provider returned %d", recorder.Code)
	}
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, hostToken := env.login(t, "fb-token-host", "fb-host", "Host")
	_, voterToken := env.login(t, "fb-token-voter", "fb-voter", "Voter")

	created := env.do(t, http.MethodPost, "/api/v1/games", hostToken, wageringhttp.CreateGameRequest{
		Topic:       "cats or dogs",
		Options:     []string{"cats", "dogs"},
		GameMode:    "majority",
		StakeMode:   "fixed",
		StakeAmount: 50,
		Deadline:    env.clock.Now().Add(time.Hour),
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create game returned %d: %s", created.Code, created.Body.String())
	}
	game := decodeAs[wageringhttp.GameResponse](t, created)
	if len(game.Options) != 2 || game.Status != "open" {
		t.Fatalf("unexpected game response: %+v", game)
	}

	voted := env.do(t, http.MethodPost, "/api/v1/games/"+game.GameID+"/votes", voterToken, wageringhttp.CastVoteRequest{
		OptionID: game.Options[0].OptionID,
		Amount:   50,
	})
	if voted.Code != http.StatusOK {
		t.Fatalf("cast vote returned %d: %s", voted.Code, voted.Body.String())
	}

	again := env.do(t, http.MethodPost, "/api/v1/games/"+game.GameID+"/votes", voterToken, wageringhttp.CastVoteRequest{
		OptionID: game.Options[1].OptionID,
		Amount:   50,
	})
	if again.Code != http.StatusConflict {
		t.Fatalf("duplicate vote returned %d", again.Code)
	}

	early := env.do(t, http.MethodPost, "/api/v1/games/"+game.GameID+"/settle", hostToken, nil)
	if early.Code != http.StatusConflict {
		t.Fatalf("settle before deadline returned %d", early.Code)
	}

	env.clock.Advance(2 * time.Hour)
	settled := env.do(t, http.MethodPost, "/api/v1/games/"+game.GameID+"/settle", hostToken, nil)
	if settled.Code != http.StatusOK {
		t.Fatalf("settle returned %d: %s", settled.Code, settled.Body.String())
	}
	settle := decodeAs[wageringhttp.SettleResponse](t, settled)
	if settle.Replayed {
		t.Fatalf("first settlement reported as replay")
	}
	if settle.WinningOptionID != game.Options[0].OptionID {
		t.Fatalf("expected the only staked option to win")
	}

	replay := decodeAs[wageringhttp.SettleResponse](t, env.do(t, http.MethodPost, "/api/v1/games/"+game.GameID+"/settle", hostToken, nil))
	if !replay.Replayed {
		t.Fatalf("second settlement missing the replay marker")
	}

	myVote := env.do(t, http.MethodGet, "/api/v1/games/"+game.GameID+"/votes/me?include_result=true", voterToken, nil)
	if myVote.Code != http.StatusOK {
		t.Fatalf("get own vote returned %d: %s", myVote.Code, myVote.Body.String())
	}
	view := decodeAs[wageringhttp.VoteViewResponse](t, myVote)
	if view.Result == nil || !view.Result.Won {
		t.Fatalf("expected winning result, got %+v", view.Result)
	}
}

func TestGetGameIsPublic(t *testing.T) {
	env := newTestEnv(t)
	_, hostToken := env.login(t, "fb-token-host", "fb-host", "Host")
	created := decodeAs[wageringhttp.GameResponse](t, env.do(t, http.MethodPost, "/api/v1/games", hostToken, wageringhttp.CreateGameRequest{
		Topic:     "tabs or spaces",
		Options:   []string{"tabs", "spaces"},
		GameMode:  "majority",
		StakeMode: "none",
		Deadline:  env.clock.Now().Add(time.Hour),
	}))

	recorder := env.do(t, http.MethodGet, "/api/v1/games/"+created.GameID, "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("public game read returned %d", recorder.Code)
	}

	recorder = env.do(t, http.MethodGet, "/api/v1/games/does-not-exist", "", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("missing game returned %d", recorder.Code)
	}
}

func TestProfileRoutes(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, "fb-token-1", "fb-1", "Alice")

	recorder := env.do(t, http.MethodGet, "/api/v1/profiles/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("own profile returned %d: %s", recorder.Code, recorder.Body.String())
	}
	var profile struct {
		UserID  string `json:"user_id"`
		Balance int64  `json:"balance"`
		Ranking *int   `json:"ranking"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.UserID != userID {
		t.Fatalf("profile user %q, want %q", profile.UserID, userID)
	}
	if profile.Ranking != nil {
		t.Fatalf("fresh profile carries a ranking")
	}

	recorder = env.do(t, http.MethodGet, "/api/v1/profiles/"+userID, "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("public profile read returned %d", recorder.Code)
	}

	recorder = env.do(t, http.MethodGet, "/api/v1/profiles/nobody", "", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("missing profile returned %d", recorder.Code)
	}

	recorder = env.do(t, http.MethodGet, "/api/v1/leaderboard", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("leaderboard returned %d", recorder.Code)
	}
}
