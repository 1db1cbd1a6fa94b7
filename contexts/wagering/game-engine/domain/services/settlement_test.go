package services

import (
	"errors"
	"testing"
	"time"

	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
)

func TestValidateStakePolicy(t *testing.T) {
	cases := []struct {
		name    string
		policy  entities.StakePolicy
		wantErr error
	}{
		{"none", entities.StakePolicy{Mode: entities.StakeModeNone}, nil},
		{"fixed valid", entities.StakePolicy{Mode: entities.StakeModeFixed, FixedAmount: 100}, nil},
		{"fixed zero", entities.StakePolicy{Mode: entities.StakeModeFixed}, domainerrors.ErrInvalidGameInput},
		{"range valid", entities.StakePolicy{Mode: entities.StakeModeRange, MinAmount: 10, MaxAmount: 50}, nil},
		{"range inverted", entities.StakePolicy{Mode: entities.StakeModeRange, MinAmount: 50, MaxAmount: 10}, domainerrors.ErrInvalidGameInput},
		{"unlimited", entities.StakePolicy{Mode: entities.StakeModeUnlimited}, nil},
		{"unknown mode", entities.StakePolicy{Mode: "wild"}, domainerrors.ErrInvalidGameInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateStakePolicy(tc.policy); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateStake(t *testing.T) {
	cases := []struct {
		name    string
		policy  entities.StakePolicy
		amount  int64
		wantErr error
	}{
		{"none zero", entities.StakePolicy{Mode: entities.StakeModeNone}, 0, nil},
		{"none nonzero", entities.StakePolicy{Mode: entities.StakeModeNone}, 10, domainerrors.ErrInvalidStake},
		{"fixed exact", entities.StakePolicy{Mode: entities.StakeModeFixed, FixedAmount: 100}, 100, nil},
		{"fixed off", entities.StakePolicy{Mode: entities.StakeModeFixed, FixedAmount: 100}, 99, domainerrors.ErrInvalidStake},
		{"range low", entities.StakePolicy{Mode: entities.StakeModeRange, MinAmount: 10, MaxAmount: 50}, 9, domainerrors.ErrInvalidStake},
		{"range high", entities.StakePolicy{Mode: entities.StakeModeRange, MinAmount: 10, MaxAmount: 50}, 51, domainerrors.ErrInvalidStake},
		{"range inside", entities.StakePolicy{Mode: entities.StakeModeRange, MinAmount: 10, MaxAmount: 50}, 30, nil},
		{"unlimited positive", entities.StakePolicy{Mode: entities.StakeModeUnlimited}, 1, nil},
		{"unlimited zero", entities.StakePolicy{Mode: entities.StakeModeUnlimited}, 0, domainerrors.ErrInvalidStake},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateStake(tc.policy, tc.amount); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPickWinnerMajorityTieBreaksToLowestIndex(t *testing.T) {
	options := []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalMoney: 500, TotalVotes: 2},
		{OptionID: "opt-b", Index: 1, TotalMoney: 500, TotalVotes: 2},
	}
	for run := 0; run < 10; run++ {
		winner, err := PickWinner(entities.GameModeMajority, options)
		if err != nil {
			t.Fatalf("pick winner failed: %v", err)
		}
		if winner.OptionID != "opt-a" {
			t.Fatalf("run %d: expected opt-a, got %s", run, winner.OptionID)
		}
	}
}

func TestPickWinnerMajorityMoneyTieIgnoresVoteCounts(t *testing.T) {
	options := []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalMoney: 500, TotalVotes: 1},
		{OptionID: "opt-b", Index: 1, TotalMoney: 500, TotalVotes: 5},
	}
	winner, err := PickWinner(entities.GameModeMajority, options)
	if err != nil {
		t.Fatalf("pick winner failed: %v", err)
	}
	if winner.OptionID != "opt-a" {
		t.Fatalf("money tie must resolve to the lowest creation index, got %s", winner.OptionID)
	}
}

func TestPickWinnerMinorityMoneyTieBreaksToLowestIndex(t *testing.T) {
	options := []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalMoney: 200, TotalVotes: 4},
		{OptionID: "opt-b", Index: 1, TotalMoney: 200, TotalVotes: 1},
	}
	winner, err := PickWinner(entities.GameModeMinority, options)
	if err != nil {
		t.Fatalf("pick winner failed: %v", err)
	}
	if winner.OptionID != "opt-a" {
		t.Fatalf("money tie must resolve to the lowest creation index, got %s", winner.OptionID)
	}
}

func TestPickWinnerMinority(t *testing.T) {
	options := []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalMoney: 700, TotalVotes: 3},
		{OptionID: "opt-b", Index: 1, TotalMoney: 0, TotalVotes: 0},
		{OptionID: "opt-c", Index: 2, TotalMoney: 200, TotalVotes: 1},
	}
	winner, err := PickWinner(entities.GameModeMinority, options)
	if err != nil {
		t.Fatalf("pick winner failed: %v", err)
	}
	if winner.OptionID != "opt-c" {
		t.Fatalf("expected least staked contested option opt-c, got %s", winner.OptionID)
	}
}

func TestPickWinnerStakelessUsesVoteCounts(t *testing.T) {
	options := []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalVotes: 1},
		{OptionID: "opt-b", Index: 1, TotalVotes: 4},
	}
	winner, err := PickWinner(entities.GameModeMajority, options)
	if err != nil {
		t.Fatalf("pick winner failed: %v", err)
	}
	if winner.OptionID != "opt-b" {
		t.Fatalf("expected most voted option opt-b, got %s", winner.OptionID)
	}
}

func testGame(mode entities.StakeMode, options []entities.Option) entities.Game {
	return entities.Game{
		GameID:  "game-1",
		Mode:    entities.GameModeMajority,
		Stakes:  entities.StakePolicy{Mode: mode, FixedAmount: 100, MinAmount: 1, MaxAmount: 1000},
		Options: options,
	}
}

func castAt(seconds int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seconds) * time.Second)
}

func TestComputeSettlementProportionalPayout(t *testing.T) {
	// 300 staked against 700; the lone voter on the 700 side collects the
	// whole losing pool.
	game := testGame(entities.StakeModeUnlimited, []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalMoney: 300, TotalVotes: 2},
		{OptionID: "opt-b", Index: 1, TotalMoney: 700, TotalVotes: 1},
	})
	votes := []entities.Vote{
		{VoteID: "v1", GameID: "game-1", UserID: "u1", OptionID: "opt-a", Money: 100, CastAt: castAt(0)},
		{VoteID: "v2", GameID: "game-1", UserID: "u2", OptionID: "opt-a", Money: 200, CastAt: castAt(1)},
		{VoteID: "v3", GameID: "game-1", UserID: "u3", OptionID: "opt-b", Money: 700, CastAt: castAt(2)},
	}

	settlement, err := ComputeSettlement(game, votes, castAt(100))
	if err != nil {
		t.Fatalf("compute settlement failed: %v", err)
	}
	if settlement.WinningOptionID != "opt-b" {
		t.Fatalf("expected opt-b to win, got %s", settlement.WinningOptionID)
	}
	want := map[string]int64{"u1": -100, "u2": -200, "u3": 300}
	for _, vote := range settlement.Votes {
		if vote.NetChange != want[vote.UserID] {
			t.Fatalf("user %s: net change %d, want %d", vote.UserID, vote.NetChange, want[vote.UserID])
		}
		if !vote.Resolved {
			t.Fatalf("vote %s not marked resolved", vote.VoteID)
		}
	}
	assertConserved(t, settlement)
}

func TestComputeSettlementRemainderDistribution(t *testing.T) {
	// Fixed stakes of 100: three winners split a losing pool of 200. The
	// floor share is 66 each; the 2 leftover units go to the earliest casts.
	game := testGame(entities.StakeModeFixed, []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalMoney: 300, TotalVotes: 3},
		{OptionID: "opt-b", Index: 1, TotalMoney: 200, TotalVotes: 2},
	})
	votes := []entities.Vote{
		{VoteID: "v1", UserID: "u1", OptionID: "opt-a", Money: 100, CastAt: castAt(0)},
		{VoteID: "v2", UserID: "u2", OptionID: "opt-a", Money: 100, CastAt: castAt(1)},
		{VoteID: "v3", UserID: "u3", OptionID: "opt-a", Money: 100, CastAt: castAt(2)},
		{VoteID: "v4", UserID: "u4", OptionID: "opt-b", Money: 100, CastAt: castAt(3)},
		{VoteID: "v5", UserID: "u5", OptionID: "opt-b", Money: 100, CastAt: castAt(4)},
	}

	settlement, err := ComputeSettlement(game, votes, castAt(100))
	if err != nil {
		t.Fatalf("compute settlement failed: %v", err)
	}
	want := map[string]int64{"u1": 67, "u2": 67, "u3": 66, "u4": -100, "u5": -100}
	for _, vote := range settlement.Votes {
		if vote.NetChange != want[vote.UserID] {
			t.Fatalf("user %s: net change %d, want %d", vote.UserID, vote.NetChange, want[vote.UserID])
		}
	}
	assertConserved(t, settlement)
}

func TestComputeSettlementStakelessIsZeroSumTrivially(t *testing.T) {
	game := testGame(entities.StakeModeNone, []entities.Option{
		{OptionID: "opt-a", Index: 0, TotalVotes: 1},
		{OptionID: "opt-b", Index: 1, TotalVotes: 2},
	})
	votes := []entities.Vote{
		{VoteID: "v1", UserID: "u1", OptionID: "opt-a", CastAt: castAt(0)},
		{VoteID: "v2", UserID: "u2", OptionID: "opt-b", CastAt: castAt(1)},
		{VoteID: "v3", UserID: "u3", OptionID: "opt-b", CastAt: castAt(2)},
	}

	settlement, err := ComputeSettlement(game, votes, castAt(100))
	if err != nil {
		t.Fatalf("compute settlement failed: %v", err)
	}
	for _, vote := range settlement.Votes {
		if vote.NetChange != 0 {
			t.Fatalf("user %s: expected zero net change, got %d", vote.UserID, vote.NetChange)
		}
	}
	if len(settlement.Deltas) != 0 {
		t.Fatalf("expected no balance deltas, got %d", len(settlement.Deltas))
	}
	if settlement.WinningOptionID != "opt-b" {
		t.Fatalf("expected most voted option to win, got %s", settlement.WinningOptionID)
	}
}

func TestComputeSettlementUncontestedGameKeepsStakes(t *testing.T) {
	// Every vote sits on the winning option, so the losing pool is empty and
	// nobody gains or loses anything.
	game := entities.Game{
		GameID: "game-1",
		Mode:   entities.GameModeMinority,
		Stakes: entities.StakePolicy{Mode: entities.StakeModeUnlimited},
		Options: []entities.Option{
			{OptionID: "opt-a", Index: 0, TotalMoney: 0, TotalVotes: 0},
			{OptionID: "opt-b", Index: 1, TotalMoney: 400, TotalVotes: 2},
		},
	}
	votes := []entities.Vote{
		{VoteID: "v1", UserID: "u1", OptionID: "opt-b", Money: 100, CastAt: castAt(0)},
		{VoteID: "v2", UserID: "u2", OptionID: "opt-b", Money: 300, CastAt: castAt(1)},
	}

	settlement, err := ComputeSettlement(game, votes, castAt(100))
	if err != nil {
		t.Fatalf("compute settlement failed: %v", err)
	}
	if settlement.WinningOptionID != "opt-b" {
		t.Fatalf("expected contested option opt-b to win, got %s", settlement.WinningOptionID)
	}
	for _, vote := range settlement.Votes {
		if vote.NetChange != 0 {
			t.Fatalf("user %s: expected zero net change, got %d", vote.UserID, vote.NetChange)
		}
		if !vote.Won {
			t.Fatalf("vote %s on the winning option not marked won", vote.VoteID)
		}
	}
	assertConserved(t, settlement)
}

func assertConserved(t *testing.T, settlement entities.Settlement) {
	t.Helper()
	total := int64(0)
	for _, vote := range settlement.Votes {
		total += vote.NetChange
	}
	if total != 0 {
		t.Fatalf("settlement does not conserve money: residual %d", total)
	}
}
