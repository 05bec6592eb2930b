package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/google/uuid"
)

const (
	UndefinedStage RoundStage = iota
	RunningStage
	SettledStage
	ResetStage
)

type RoundStage int

func (s RoundStage) String() string {
	switch s {
	case RunningStage:
		return "RUNNING_STAGE"
	case SettledStage:
		return "SETTLED_STAGE"
	case ResetStage:
		return "RESET_STAGE"
	default:
		return "UNDEFINED_STAGE"
	}
}

// RoundStatus is the two-valued status exposed to callers.
type RoundStatus int

const (
	WaitingNewRound RoundStatus = iota
	Running
)

func (s RoundStatus) String() string {
	if s == Running {
		return "RUNNING"
	}
	return "WAITING_NEW_ROUND"
}

type Round struct {
	Id                string
	Number            uint64
	StartingTimestamp int64
	EndingTimestamp   int64
	Stage             RoundStage
	EntryValue        uint64
	Initializer       common.Address
	Finalizer         common.Address
	ResetBy           common.Address
	Participants      Participants
	PoolBalance       uint64
	Winner            common.Address
	Settlement        Settlement
	Version           uint
	changes           []RoundEvent
}

func NewRound(number, entryValue uint64) *Round {
	return &Round{
		Id:           uuid.New().String(),
		Number:       number,
		EntryValue:   entryValue,
		Participants: NewParticipants(),
		changes:      make([]RoundEvent, 0),
	}
}

func NewRoundFromEvents(events []RoundEvent) *Round {
	r := &Round{Participants: NewParticipants()}

	for _, event := range events {
		r.On(event, true)
	}

	r.changes = append([]RoundEvent{}, events...)

	return r
}

func (r *Round) Events() []RoundEvent {
	return r.changes
}

func (r *Round) On(event RoundEvent, replayed bool) {
	switch e := event.(type) {
	case RoundStarted:
		r.Id = e.Id
		r.Number = e.Number
		r.Stage = RunningStage
		r.EntryValue = e.EntryValue
		r.Initializer = e.Initializer
		r.StartingTimestamp = e.Timestamp
	case DepositRegistered:
		r.Participants.Add(e.Participant)
		r.PoolBalance += e.Amount
	case WinnerSelected:
		r.Stage = SettledStage
		r.Winner = e.Winner
		r.Finalizer = e.Finalizer
		r.Settlement = e.Settlement
		r.PoolBalance -= e.Settlement.Total()
		r.EndingTimestamp = e.Timestamp
	case RoundForceReset:
		r.Stage = ResetStage
		r.ResetBy = e.ResetBy
		r.EndingTimestamp = e.Timestamp
	}

	if replayed {
		r.Version++
	}
}

func (r *Round) start(initializer common.Address, timestamp int64) ([]RoundEvent, error) {
	if r.Stage != UndefinedStage {
		return nil, fmt.Errorf("round %d already started", r.Number)
	}

	event := RoundStarted{
		Id:          r.Id,
		Number:      r.Number,
		Initializer: initializer,
		EntryValue:  r.EntryValue,
		Timestamp:   timestamp,
	}
	r.raise(event)

	return []RoundEvent{event}, nil
}

func (r *Round) registerDeposit(participant common.Address, amount uint64, maxParticipants int) []RoundEvent {
	events := []RoundEvent{DepositRegistered{
		Id:          r.Id,
		Number:      r.Number,
		Participant: participant,
		Amount:      amount,
	}}
	r.raise(events[0])

	if maxParticipants > 0 && r.Participants.Count() == maxParticipants {
		full := LotteryFull{
			Id:           r.Id,
			Number:       r.Number,
			Participants: r.Participants.Count(),
		}
		r.raise(full)
		events = append(events, full)
	}
	return events
}

func (r *Round) settle(settlement Settlement, timestamp int64) []RoundEvent {
	event := WinnerSelected{
		Id:         r.Id,
		Number:     r.Number,
		Winner:     settlement.Winner,
		Finalizer:  settlement.Finalizer,
		Settlement: settlement,
		Timestamp:  timestamp,
	}
	r.raise(event)

	return []RoundEvent{event}
}

func (r *Round) forceReset(resetBy common.Address, timestamp int64) []RoundEvent {
	event := RoundForceReset{
		Id:        r.Id,
		Number:    r.Number,
		ResetBy:   resetBy,
		Timestamp: timestamp,
	}
	r.raise(event)

	return []RoundEvent{event}
}

func (r *Round) IsRunning() bool {
	return r.Stage == RunningStage
}

func (r *Round) IsSettled() bool {
	return r.Stage == SettledStage
}

func (r *Round) IsReset() bool {
	return r.Stage == ResetStage
}

func (r *Round) IsClosed() bool {
	return r.IsSettled() || r.IsReset()
}

func (r *Round) Status() RoundStatus {
	if r.IsRunning() {
		return Running
	}
	return WaitingNewRound
}

// CheckPool verifies that the custodied amount equals one stake per entry.
func (r *Round) CheckPool() error {
	if !r.IsRunning() {
		if r.PoolBalance != 0 {
			return fmt.Errorf("%w: closed round %d holds %d", ErrPoolMismatch, r.Number, r.PoolBalance)
		}
		return nil
	}
	expected, overflow := math.SafeMul(uint64(r.Participants.Count()), r.EntryValue)
	if overflow {
		return fmt.Errorf(
			"%w: round %d stakes overflow with %d participants",
			ErrPoolMismatch, r.Number, r.Participants.Count(),
		)
	}
	if r.PoolBalance != expected {
		return fmt.Errorf(
			"%w: round %d holds %d, expected %d",
			ErrPoolMismatch, r.Number, r.PoolBalance, expected,
		)
	}
	return nil
}

func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Participants = r.Participants.clone()
	clone.changes = append([]RoundEvent{}, r.changes...)
	return &clone
}

func (r *Round) raise(event RoundEvent) {
	if r.changes == nil {
		r.changes = make([]RoundEvent, 0)
	}
	r.changes = append(r.changes, event)
	r.On(event, false)
}
