package gameengine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gameengine "zerosum/contexts/wagering/game-engine"
	"zerosum/contexts/wagering/game-engine/adapters/memory"
	"zerosum/contexts/wagering/game-engine/application/commands"
	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
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

func newTestModule() (gameengine.Module, *memory.Store, *fakeClock) {
	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	module := gameengine.NewModule(gameengine.Dependencies{
		Games:       store,
		Votes:       store,
		Settlements: store,
		Outbox:      store,
		Clock:       clock,
		IDGen:       store,
	})
	module.Store = store
	return module, store, clock
}

func createGame(t *testing.T, module gameengine.Module, clock *fakeClock, stakes entities.StakePolicy) entities.Game {
	t.Helper()
	game, err := module.Handler.Games.CreateGame(context.Background(), commands.CreateGameCommand{
		OwnerID:  "owner-1",
		Topic:    "pineapple on pizza",
		Options:  []string{"yes", "no"},
		Mode:     entities.GameModeMajority,
		Stakes:   stakes,
		Deadline: clock.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}
	return game
}

func TestCreateGameValidation(t *testing.T) {
	module, _, clock := newTestModule()
	valid := commands.CreateGameCommand{
		OwnerID:  "owner-1",
		Topic:    "topic",
		Options:  []string{"a", "b"},
		Mode:     entities.GameModeMajority,
		Stakes:   entities.StakePolicy{Mode: entities.StakeModeUnlimited},
		Deadline: clock.Now().Add(time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(*commands.CreateGameCommand)
	}{
		{"missing owner", func(cmd *commands.CreateGameCommand) { cmd.OwnerID = " " }},
		{"single option", func(cmd *commands.CreateGameCommand) { cmd.Options = []string{"a"} }},
		{"blank option", func(cmd *commands.CreateGameCommand) { cmd.Options = []string{"a", " "} }},
		{"unknown mode", func(cmd *commands.CreateGameCommand) { cmd.Mode = "plurality" }},
		{"past deadline", func(cmd *commands.CreateGameCommand) { cmd.Deadline = clock.Now().Add(-time.Minute) }},
		{"broken stake policy", func(cmd *commands.CreateGameCommand) {
			cmd.Stakes = entities.StakePolicy{Mode: entities.StakeModeFixed}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := valid
			tc.mutate(&cmd)
			if _, err := module.Handler.Games.CreateGame(context.Background(), cmd); !errors.Is(err, domainerrors.ErrInvalidGameInput) {
				t.Fatalf("got %v, want ErrInvalidGameInput", err)
			}
		})
	}

	if _, err := module.Handler.Games.CreateGame(context.Background(), valid); err != nil {
		t.Fatalf("valid game rejected: %v", err)
	}
}

func TestCastVotePreconditions(t *testing.T) {
	module, _, clock := newTestModule()
	game := createGame(t, module, clock, entities.StakePolicy{Mode: entities.StakeModeFixed, FixedAmount: 100})
	ctx := context.Background()

	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u1", GameID: "missing", OptionID: game.Options[0].OptionID, Amount: 100,
	}); !errors.Is(err, domainerrors.ErrGameNotFound) {
		t.Fatalf("missing game: got %v, want ErrGameNotFound", err)
	}
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u1", GameID: game.GameID, OptionID: "missing", Amount: 100,
	}); !errors.Is(err, domainerrors.ErrUnknownOption) {
		t.Fatalf("unknown option: got %v, want ErrUnknownOption", err)
	}
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u1", GameID: game.GameID, OptionID: game.Options[0].OptionID, Amount: 55,
	}); !errors.Is(err, domainerrors.ErrInvalidStake) {
		t.Fatalf("bad stake: got %v, want ErrInvalidStake", err)
	}

	first, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u1", GameID: game.GameID, OptionID: game.Options[0].OptionID, Amount: 100,
	})
	if err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u1", GameID: game.GameID, OptionID: game.Options[1].OptionID, Amount: 100,
	}); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("second vote: got %v, want ErrAlreadyVoted", err)
	}

	view, err := module.Handler.Reads.GetGame(ctx, game.GameID)
	if err != nil {
		t.Fatalf("get game failed: %v", err)
	}
	if view.Game.TotalMoney != first.Money {
		t.Fatalf("rejected votes mutated totals: %d", view.Game.TotalMoney)
	}
	if view.Game.Options[0].TotalVotes != 1 || view.Game.Options[1].TotalVotes != 0 {
		t.Fatalf("unexpected vote counts: %+v", view.Game.Options)
	}
}

func TestCastVoteAfterDeadlineRejected(t *testing.T) {
	module, _, clock := newTestModule()
	game := createGame(t, module, clock, entities.StakePolicy{Mode: entities.StakeModeUnlimited})

	clock.Advance(2 * time.Hour)
	if _, err := module.Handler.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		UserID: "u1", GameID: game.GameID, OptionID: game.Options[0].OptionID, Amount: 10,
	}); !errors.Is(err, domainerrors.ErrGameClosed) {
		t.Fatalf("got %v, want ErrGameClosed", err)
	}
}

func TestSettleLifecycle(t *testing.T) {
	module, store, clock := newTestModule()
	game := createGame(t, module, clock, entities.StakePolicy{Mode: entities.StakeModeUnlimited})
	ctx := context.Background()

	votes := []struct {
		user   string
		option string
		amount int64
	}{
		{"u1", game.Options[0].OptionID, 100},
		{"u2", game.Options[0].OptionID, 200},
		{"u3", game.Options[1].OptionID, 700},
	}
	for _, v := range votes {
		if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
			UserID: v.user, GameID: game.GameID, OptionID: v.option, Amount: v.amount,
		}); err != nil {
			t.Fatalf("vote by %s failed: %v", v.user, err)
		}
		clock.Advance(time.Second)
	}

	if _, err := module.Settle.Settle(ctx, commands.SettleCommand{GameID: game.GameID}); !errors.Is(err, domainerrors.ErrNotReady) {
		t.Fatalf("settle before deadline: got %v, want ErrNotReady", err)
	}

	clock.Advance(2 * time.Hour)
	first, err := module.Settle.Settle(ctx, commands.SettleCommand{GameID: game.GameID})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first settlement reported as replay")
	}
	if first.Settlement.WinningOptionID != game.Options[1].OptionID {
		t.Fatalf("expected heavier option to win")
	}

	total := int64(0)
	for _, vote := range first.Settlement.Votes {
		total += vote.NetChange
	}
	if total != 0 {
		t.Fatalf("settlement residual %d", total)
	}
	if store.Balance("u3") != 300 || store.Balance("u1") != -100 || store.Balance("u2") != -200 {
		t.Fatalf("unexpected balances: u1=%d u2=%d u3=%d",
			store.Balance("u1"), store.Balance("u2"), store.Balance("u3"))
	}

	second, err := module.Settle.Settle(ctx, commands.SettleCommand{GameID: game.GameID})
	if err != nil {
		t.Fatalf("replay settle failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replay marker on second settle")
	}
	if second.Settlement.WinningOptionID != first.Settlement.WinningOptionID {
		t.Fatalf("replay changed winner")
	}
	if store.Balance("u3") != 300 {
		t.Fatalf("replay mutated balances: u3=%d", store.Balance("u3"))
	}

	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u4", GameID: game.GameID, OptionID: game.Options[0].OptionID, Amount: 10,
	}); !errors.Is(err, domainerrors.ErrGameClosed) {
		t.Fatalf("vote on resolved game: got %v, want ErrGameClosed", err)
	}
}

func TestConcurrentSettleAppliesOnce(t *testing.T) {
	module, store, clock := newTestModule()
	game := createGame(t, module, clock, entities.StakePolicy{Mode: entities.StakeModeFixed, FixedAmount: 100})
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, user := range users {
		option := game.Options[0].OptionID
		if i >= 3 {
			option = game.Options[1].OptionID
		}
		if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
			UserID: user, GameID: game.GameID, OptionID: option, Amount: 100,
		}); err != nil {
			t.Fatalf("vote by %s failed: %v", user, err)
		}
		clock.Advance(time.Second)
	}
	clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	results := make([]commands.SettleResult, 8)
	for i := 0; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := module.Settle.Settle(ctx, commands.SettleCommand{GameID: game.GameID})
			if err != nil {
				t.Errorf("concurrent settle %d failed: %v", i, err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, result := range results {
		if !result.Replayed {
			applied++
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied settlement, got %d", applied)
	}

	total := int64(0)
	for _, user := range users {
		total += store.Balance(user)
	}
	if total != 0 {
		t.Fatalf("balances do not conserve money: residual %d", total)
	}
}

func TestLifecycleEmitsOutboxEvents(t *testing.T) {
	module, store, clock := newTestModule()
	game := createGame(t, module, clock, entities.StakePolicy{Mode: entities.StakeModeNone})
	ctx := context.Background()

	for _, user := range []string{"u1", "u2"} {
		if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
			UserID: user, GameID: game.GameID, OptionID: game.Options[0].OptionID,
		}); err != nil {
			t.Fatalf("vote by %s failed: %v", user, err)
		}
		clock.Advance(time.Second)
	}
	clock.Advance(2 * time.Hour)
	if _, err := module.Settle.Settle(ctx, commands.SettleCommand{GameID: game.GameID}); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	counts := map[string]int{}
	for _, message := range pending {
		counts[message.EventType]++
	}
	if counts["game.created"] != 1 || counts["vote.cast"] != 2 || counts["game.resolved"] != 1 {
		t.Fatalf("unexpected outbox contents: %v", counts)
	}
}

func TestGetVoteWithResult(t *testing.T) {
	module, _, clock := newTestModule()
	game := createGame(t, module, clock, entities.StakePolicy{Mode: entities.StakeModeUnlimited})
	ctx := context.Background()

	if _, err := module.Handler.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID: "u1", GameID: game.GameID, OptionID: game.Options[0].OptionID, Amount: 50,
	}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	before, err := module.Handler.Reads.GetVote(ctx, "u1", game.GameID, true)
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if before.Outcome != nil {
		t.Fatalf("outcome leaked before resolution")
	}

	clock.Advance(2 * time.Hour)
	if _, err := module.Settle.Settle(ctx, commands.SettleCommand{GameID: game.GameID}); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	after, err := module.Handler.Reads.GetVote(ctx, "u1", game.GameID, true)
	if err != nil {
		t.Fatalf("get vote failed: %v", err)
	}
	if after.Outcome == nil || !after.Outcome.Won {
		t.Fatalf("expected winning outcome, got %+v", after.Outcome)
	}
	if after.Outcome.NetChange != 0 {
		t.Fatalf("uncontested game should keep stakes, got %d", after.Outcome.NetChange)
	}

	if _, err := module.Handler.Reads.GetVote(ctx, "nobody", game.GameID, false); !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("got %v, want ErrVoteNotFound", err)
	}
}
