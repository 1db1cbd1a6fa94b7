package services

import (
	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
)

// WinnerPolicy picks exactly one winning option from the game's ordered
// options. Implementations must be deterministic: repeated runs over the same
// input declare the same winner. Ties always break toward the lowest creation
// index, which keeps resolution reproducible even though the rule is not
// visible to voters.
type WinnerPolicy func(options []entities.Option) entities.Option

// PickWinner resolves the policy named by the game mode. The indirection
// exists so a mode can be swapped (tie-void, pool-split) without touching the
// settlement algorithm.
func PickWinner(mode entities.GameMode, options []entities.Option) (entities.Option, error) {
	if len(options) == 0 {
		return entities.Option{}, domainerrors.ErrInvalidGameInput
	}
	switch mode {
	case entities.GameModeMajority:
		return majorityByStake(options), nil
	case entities.GameModeMinority:
		return minorityByStake(options), nil
	default:
		return entities.Option{}, domainerrors.ErrInvalidGameInput
	}
}

// majorityByStake: the option holding the strictly greatest staked total
// wins; equal totals resolve to the lowest creation index regardless of vote
// counts. Games where no money was staked at all compare vote counts instead,
// with the same index tie-break.
func majorityByStake(options []entities.Option) entities.Option {
	if !anyStaked(options) {
		return mostVoted(options)
	}
	winner := options[0]
	for _, option := range options[1:] {
		if option.TotalMoney > winner.TotalMoney {
			winner = option
		}
	}
	return winner
}

// minorityByStake: the option holding the least non-zero staked total wins;
// equal totals resolve to the lowest creation index. Stakeless games compare
// vote counts instead, skipping options nobody voted for; a game with no
// votes at all falls back to the first option so that exactly one winner
// always exists.
func minorityByStake(options []entities.Option) entities.Option {
	var winner *entities.Option
	if !anyStaked(options) {
		for i := range options {
			if options[i].TotalVotes == 0 {
				continue
			}
			if winner == nil || options[i].TotalVotes < winner.TotalVotes {
				winner = &options[i]
			}
		}
		if winner == nil {
			return options[0]
		}
		return *winner
	}
	for i := range options {
		if options[i].TotalMoney == 0 {
			continue
		}
		if winner == nil || options[i].TotalMoney < winner.TotalMoney {
			winner = &options[i]
		}
	}
	return *winner
}

func anyStaked(options []entities.Option) bool {
	for _, option := range options {
		if option.TotalMoney > 0 {
			return true
		}
	}
	return false
}

func mostVoted(options []entities.Option) entities.Option {
	winner := options[0]
	for _, option := range options[1:] {
		if option.TotalVotes > winner.TotalVotes {
			winner = option
		}
	}
	return winner
}
