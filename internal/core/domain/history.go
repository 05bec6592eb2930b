package domain

import "github.com/ethereum/go-ethereum/common"

// History survives round resets. It feeds the audit views and the
// anti-collusion checks, and is only ever changed by applying round events.
type History struct {
	RoundNumber         uint64
	LastInitializer     common.Address
	LastFinalizer       common.Address
	LastWinner          common.Address
	LastPrize           uint64
	LastClosedTimestamp int64
}

func (h *History) On(event RoundEvent) {
	switch e := event.(type) {
	case RoundStarted:
		h.RoundNumber = e.Number
		h.LastInitializer = e.Initializer
	case WinnerSelected:
		h.LastFinalizer = e.Finalizer
		h.LastWinner = e.Winner
		h.LastPrize = e.Settlement.Prize
		h.LastClosedTimestamp = e.Timestamp
	case RoundForceReset:
		// The abandoned round had neither a finalizer nor a winner.
		h.LastFinalizer = common.Address{}
		h.LastWinner = common.Address{}
		h.LastPrize = 0
		h.LastClosedTimestamp = e.Timestamp
	}
}

func (h History) HasClosedRound() bool {
	return h.LastClosedTimestamp > 0
}

// checkInitializer rejects the initializer of the latest round.
func (h History) checkInitializer(caller common.Address) error {
	if h.LastInitializer != (common.Address{}) && caller == h.LastInitializer {
		return ErrRepeatInitializer
	}
	return nil
}

// checkFinalizer rejects the finalizer of the latest settled round.
func (h History) checkFinalizer(caller common.Address) error {
	if h.LastFinalizer != (common.Address{}) && caller == h.LastFinalizer {
		return ErrRepeatFinalizer
	}
	return nil
}
