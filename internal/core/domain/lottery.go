package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const (
	DefaultMaxParticipants = 1000
	DefaultRoundDuration   = 24 * time.Hour
	DefaultRoundCooldown   = time.Hour
)

type Rules struct {
	Owner           common.Address
	Custody         common.Address // holds the pools, never takes part in a round
	EntryValue      uint64
	MaxParticipants int
	RoundDuration   time.Duration
	Cooldown        time.Duration
	Fees            FeePolicy
}

func (r Rules) Validate() error {
	if r.Owner == (common.Address{}) {
		return fmt.Errorf("missing owner address")
	}
	if r.Custody == (common.Address{}) {
		return fmt.Errorf("missing custody address")
	}
	if r.Custody == r.Owner {
		return fmt.Errorf("custody address must differ from owner")
	}
	if r.EntryValue == 0 {
		return fmt.Errorf("entry value must be greater than 0")
	}
	if r.MaxParticipants <= 0 {
		return fmt.Errorf("max participants must be greater than 0")
	}
	if _, overflow := math.SafeMul(r.EntryValue, uint64(r.MaxParticipants)); overflow {
		return fmt.Errorf(
			"a full round of %d entries of %d overflows the pool, lower the entry value unit",
			r.MaxParticipants, r.EntryValue,
		)
	}
	if r.RoundDuration <= 0 {
		return fmt.Errorf("round duration must be greater than 0")
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	return r.Fees.Validate()
}

// Eligibility tells which operations an address may invoke right now,
// ignoring timing.
type Eligibility struct {
	CanStartRound   bool
	CanDeposit      bool
	CanSelectWinner bool
	CanForceReset   bool
}

// Lottery is the whole mutable state of the engine. Mutating methods must be
// called by one writer at a time; callers that need all-or-nothing
// semantics mutate a Clone and discard it on failure.
type Lottery struct {
	Rules   Rules
	History History
	Current *Round
}

func NewLottery(rules Rules) *Lottery {
	return &Lottery{Rules: rules}
}

// NewLotteryFromRounds rebuilds the state by replaying the given rounds'
// events in order. The last round becomes the current one.
func NewLotteryFromRounds(rules Rules, rounds ...*Round) *Lottery {
	l := NewLottery(rules)
	for _, round := range rounds {
		if round == nil {
			continue
		}
		for _, event := range round.Events() {
			l.History.On(event)
		}
		l.Current = round
	}
	return l
}

func (l *Lottery) StartNextRound(caller common.Address, now time.Time) ([]RoundEvent, error) {
	if caller == (common.Address{}) {
		return nil, ErrInvalidCaller
	}
	if caller == l.Rules.Owner {
		return nil, ErrOwnerNotAllowed
	}
	if caller == l.Rules.Custody {
		return nil, ErrCustodyNotAllowed
	}
	if err := l.History.checkInitializer(caller); err != nil {
		return nil, err
	}
	if l.IsRunning() {
		return nil, ErrRoundNotCompleted
	}
	if l.TimeLeftToAllowNewRound(now) > 0 {
		return nil, ErrCooldownNotElapsed
	}

	round := NewRound(l.History.RoundNumber+1, l.Rules.EntryValue)
	events, err := round.start(caller, now.Unix())
	if err != nil {
		return nil, err
	}
	l.apply(events)
	l.Current = round

	return events, nil
}

func (l *Lottery) Deposit(caller common.Address, value uint64) ([]RoundEvent, error) {
	if caller == (common.Address{}) {
		return nil, ErrInvalidCaller
	}
	if !l.IsRunning() {
		return nil, ErrRoundNotRunning
	}
	if value != l.Current.EntryValue {
		return nil, ErrWrongStake
	}
	if caller == l.Rules.Owner {
		return nil, ErrOwnerCannotParticipate
	}
	if caller == l.Rules.Custody {
		return nil, ErrCustodyNotAllowed
	}
	if l.Current.Participants.Has(caller) {
		return nil, ErrDuplicateParticipant
	}
	if l.Current.Participants.Count() >= l.Rules.MaxParticipants {
		return nil, ErrRoundFull
	}

	events := l.Current.registerDeposit(caller, value, l.Rules.MaxParticipants)
	l.apply(events)

	return events, nil
}

func (l *Lottery) SelectWinner(
	caller common.Address, entropy [32]byte, now time.Time,
) ([]RoundEvent, error) {
	if caller == (common.Address{}) {
		return nil, ErrInvalidCaller
	}
	if !l.IsRunning() {
		return nil, ErrRoundNotRunning
	}
	if !l.isElapsed(now) {
		return nil, ErrRoundNotElapsed
	}
	if l.Current.Participants.Count() == 0 {
		return nil, ErrNoParticipants
	}
	if caller == l.Rules.Custody {
		return nil, ErrCustodyNotAllowed
	}
	if err := l.History.checkFinalizer(caller); err != nil {
		return nil, err
	}
	if err := l.Current.CheckPool(); err != nil {
		return nil, err
	}

	timestamp := now.Unix()
	seed := WinnerSeed(timestamp, entropy, caller)
	winner := l.Current.Participants.At(
		WinnerIndex(seed, l.Current.Participants.Count()),
	)
	settlement := l.Rules.Fees.Settle(
		l.Current.PoolBalance, l.Rules.Owner, l.Current.Initializer, caller, winner,
	)

	events := l.Current.settle(settlement, timestamp)
	l.apply(events)

	return events, nil
}

func (l *Lottery) ForceResetRound(caller common.Address, now time.Time) ([]RoundEvent, error) {
	if caller != l.Rules.Owner {
		return nil, ErrNotOwner
	}
	if !l.IsRunning() {
		return nil, ErrRoundNotRunning
	}
	if !l.isElapsed(now) {
		return nil, ErrRoundNotElapsed
	}
	if l.Current.Participants.Count() > 0 {
		return nil, ErrParticipantsExist
	}

	events := l.Current.forceReset(caller, now.Unix())
	l.apply(events)

	return events, nil
}

func (l *Lottery) IsRunning() bool {
	return l.Current != nil && l.Current.IsRunning()
}

func (l *Lottery) Status() RoundStatus {
	if l.IsRunning() {
		return Running
	}
	return WaitingNewRound
}

func (l *Lottery) PoolBalance() uint64 {
	if !l.IsRunning() {
		return 0
	}
	return l.Current.PoolBalance
}

func (l *Lottery) ParticipantsCount() int {
	if !l.IsRunning() {
		return 0
	}
	return l.Current.Participants.Count()
}

func (l *Lottery) IsParticipating(addr common.Address) bool {
	return l.IsRunning() && l.Current.Participants.Has(addr)
}

// TimeLeftToClose is zero when no round runs or the round can be closed.
func (l *Lottery) TimeLeftToClose(now time.Time) time.Duration {
	if !l.IsRunning() {
		return 0
	}
	end := time.Unix(l.Current.StartingTimestamp, 0).Add(l.Rules.RoundDuration)
	return nonNegative(end.Sub(now))
}

// TimeLeftToAllowNewRound is zero before the first round closes.
func (l *Lottery) TimeLeftToAllowNewRound(now time.Time) time.Duration {
	if !l.History.HasClosedRound() {
		return 0
	}
	next := time.Unix(l.History.LastClosedTimestamp, 0).Add(l.Rules.Cooldown)
	return nonNegative(next.Sub(now))
}

func (l *Lottery) Eligibility(addr common.Address) Eligibility {
	isOwner := addr == l.Rules.Owner
	isCustody := addr == l.Rules.Custody
	running := l.IsRunning()
	return Eligibility{
		CanStartRound: !running && !isOwner && !isCustody &&
			l.History.checkInitializer(addr) == nil,
		CanDeposit: running && !isOwner && !isCustody &&
			!l.Current.Participants.Has(addr) &&
			l.Current.Participants.Count() < l.Rules.MaxParticipants,
		CanSelectWinner: running && !isCustody && l.Current.Participants.Count() > 0 &&
			l.History.checkFinalizer(addr) == nil,
		CanForceReset: running && isOwner && l.Current.Participants.Count() == 0,
	}
}

func (l *Lottery) Clone() *Lottery {
	return &Lottery{
		Rules:   l.Rules,
		History: l.History,
		Current: l.Current.Clone(),
	}
}

func (l *Lottery) isElapsed(now time.Time) bool {
	return l.TimeLeftToClose(now) == 0
}

func (l *Lottery) apply(events []RoundEvent) {
	for _, e := range events {
		l.History.On(e)
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
