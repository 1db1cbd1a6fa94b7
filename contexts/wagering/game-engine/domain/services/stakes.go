package services

import (
	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
)

// ValidateStakePolicy checks policy parameters at game creation time so that
// admission-time validation never sees a malformed policy.
func ValidateStakePolicy(policy entities.StakePolicy) error {
	switch policy.Mode {
	case entities.StakeModeNone:
		return nil
	case entities.StakeModeFixed:
		if policy.FixedAmount <= 0 {
			return domainerrors.ErrInvalidGameInput
		}
		return nil
	case entities.StakeModeRange:
		if policy.MinAmount <= 0 || policy.MaxAmount <= 0 || policy.MinAmount > policy.MaxAmount {
			return domainerrors.ErrInvalidGameInput
		}
		return nil
	case entities.StakeModeUnlimited:
		return nil
	default:
		return domainerrors.ErrInvalidGameInput
	}
}

// ValidateStake is the pure staking validator: it accepts or rejects a
// proposed amount against a game's stake policy and has no side effects.
func ValidateStake(policy entities.StakePolicy, amount int64) error {
	switch policy.Mode {
	case entities.StakeModeNone:
		if amount != 0 {
			return domainerrors.ErrInvalidStake
		}
	case entities.StakeModeFixed:
		if amount != policy.FixedAmount {
			return domainerrors.ErrInvalidStake
		}
	case entities.StakeModeRange:
		if amount < policy.MinAmount || amount > policy.MaxAmount {
			return domainerrors.ErrInvalidStake
		}
	case entities.StakeModeUnlimited:
		if amount <= 0 {
			return domainerrors.ErrInvalidStake
		}
	default:
		return domainerrors.ErrInvalidStake
	}
	return nil
}
