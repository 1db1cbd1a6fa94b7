package errors

import "errors"

var (
	ErrInvalidGameInput   = errors.New("invalid game input")
	ErrInvalidVoteInput   = errors.New("invalid vote input")
	ErrGameNotFound       = errors.New("game not found")
	ErrVoteNotFound       = errors.New("vote not found")
	ErrGameClosed         = errors.New("game is closed to new votes")
	ErrUnknownOption      = errors.New("option does not belong to game")
	ErrAlreadyVoted       = errors.New("user already voted on this game")
	ErrInvalidStake       = errors.New("stake amount violates the game stake policy")
	ErrNotReady           = errors.New("game deadline has not elapsed")
	ErrAlreadyResolved    = errors.New("game is already resolved")
	ErrConflict           = errors.New("concurrent update conflict")
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)
