package services

import (
	"fmt"
	"sort"
	"time"

	"zerosum/contexts/wagering/game-engine/domain/entities"
)

// ComputeSettlement turns a closed game plus its votes into a full settlement:
// winner flags, per-vote outcomes, and per-user balance deltas. It performs no
// I/O; the caller applies the result atomically.
//
// Payouts are pari-mutuel: losing stakes are split among winning stakes in
// proportion to each winner's own stake. Integer division leaves a remainder
// of at most len(winningVotes)-1 units; it is handed out one unit at a time to
// winning votes ordered by stake (largest first), then cast time, then vote
// ID, so that the redistributed total matches the losing pool exactly and the
// conservation invariant (sum of net changes == 0) holds by construction.
func ComputeSettlement(game entities.Game, votes []entities.Vote, now time.Time) (entities.Settlement, error) {
	options := append([]entities.Option(nil), game.Options...)
	sort.Slice(options, func(i, j int) bool { return options[i].Index < options[j].Index })

	winner, err := PickWinner(game.Mode, options)
	if err != nil {
		return entities.Settlement{}, err
	}

	settled := make([]entities.Vote, len(votes))
	copy(settled, votes)
	sort.Slice(settled, func(i, j int) bool {
		if !settled[i].CastAt.Equal(settled[j].CastAt) {
			return settled[i].CastAt.Before(settled[j].CastAt)
		}
		return settled[i].VoteID < settled[j].VoteID
	})

	winPool := int64(0)
	losePool := int64(0)
	for _, vote := range settled {
		if vote.OptionID == winner.OptionID {
			winPool += vote.Money
		} else {
			losePool += vote.Money
		}
	}

	var winningIdx []int
	for i := range settled {
		settled[i].Resolved = true
		settled[i].Won = settled[i].OptionID == winner.OptionID
		switch {
		case game.Stakes.Mode == entities.StakeModeNone:
			settled[i].NetChange = 0
		case winPool == 0:
			// Nobody staked on the winning option: there is no recipient for
			// the losing pool, so every stake is retained by its owner.
			settled[i].NetChange = 0
		case settled[i].Won:
			settled[i].NetChange = settled[i].Money * losePool / winPool
			winningIdx = append(winningIdx, i)
		default:
			settled[i].NetChange = -settled[i].Money
		}
	}

	if game.Stakes.Mode != entities.StakeModeNone && winPool > 0 {
		distributed := int64(0)
		for _, i := range winningIdx {
			distributed += settled[i].NetChange
		}
		remainder := losePool - distributed

		byStake := append([]int(nil), winningIdx...)
		sort.SliceStable(byStake, func(a, b int) bool {
			return settled[byStake[a]].Money > settled[byStake[b]].Money
		})
		for _, i := range byStake {
			if remainder == 0 {
				break
			}
			settled[i].NetChange++
			remainder--
		}
	}

	total := int64(0)
	for _, vote := range settled {
		total += vote.NetChange
	}
	if total != 0 {
		return entities.Settlement{}, fmt.Errorf("settlement for game %s does not conserve money: residual %d", game.GameID, total)
	}

	deltas := make([]entities.BalanceDelta, 0, len(settled))
	for _, vote := range settled {
		if vote.NetChange == 0 {
			continue
		}
		deltas = append(deltas, entities.BalanceDelta{UserID: vote.UserID, Delta: vote.NetChange})
	}

	return entities.Settlement{
		GameID:          game.GameID,
		WinningOptionID: winner.OptionID,
		ResolvedAt:      now,
		Votes:           settled,
		Deltas:          deltas,
	}, nil
}
