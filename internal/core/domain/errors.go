package domain

import "errors"

// Precondition violations. They are always returned before any state is
// touched, so the caller can retry with corrected input or timing.
var (
	ErrRoundNotCompleted      = errors.New("current round not completed")
	ErrCooldownNotElapsed     = errors.New("interval between rounds not passed")
	ErrRepeatInitializer      = errors.New("cant repeat initializer")
	ErrOwnerNotAllowed        = errors.New("owner cant initialize a round")
	ErrRoundNotRunning        = errors.New("round is not running")
	ErrWrongStake             = errors.New("exact entry value required")
	ErrDuplicateParticipant   = errors.New("already participating")
	ErrOwnerCannotParticipate = errors.New("owner cant participate")
	ErrRoundFull              = errors.New("lottery full")
	ErrRoundNotElapsed        = errors.New("round time not passed")
	ErrNoParticipants         = errors.New("no participants")
	ErrRepeatFinalizer        = errors.New("cant repeat finalizer")
	ErrNotOwner               = errors.New("only owner")
	ErrParticipantsExist      = errors.New("participants exist")
	ErrInvalidCaller          = errors.New("invalid caller address")
	ErrCustodyNotAllowed      = errors.New("custody account cant take part in rounds")
)

// ErrPoolMismatch signals a broken money invariant. It never happens with a
// correct implementation and must not be retried.
var ErrPoolMismatch = errors.New("pool balance does not match participants")
