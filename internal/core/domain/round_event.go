package domain

import "github.com/ethereum/go-ethereum/common"

const RoundTopic = "round"

type EventType int

const (
	EventTypeUndefined EventType = iota
	EventTypeRoundStarted
	EventTypeDepositRegistered
	EventTypeLotteryFull
	EventTypeWinnerSelected
	EventTypeRoundForceReset
)

func (t EventType) String() string {
	switch t {
	case EventTypeRoundStarted:
		return "RoundStarted"
	case EventTypeDepositRegistered:
		return "NewDeposit"
	case EventTypeLotteryFull:
		return "LotteryFull"
	case EventTypeWinnerSelected:
		return "WinnerSelected"
	case EventTypeRoundForceReset:
		return "RoundForceReset"
	default:
		return "Undefined"
	}
}

type RoundEvent interface {
	GetTopic() string
	GetType() EventType
	GetRoundId() string
}

func (e RoundStarted) GetTopic() string      { return RoundTopic }
func (e DepositRegistered) GetTopic() string { return RoundTopic }
func (e LotteryFull) GetTopic() string       { return RoundTopic }
func (e WinnerSelected) GetTopic() string    { return RoundTopic }
func (e RoundForceReset) GetTopic() string   { return RoundTopic }

func (e RoundStarted) GetType() EventType      { return EventTypeRoundStarted }
func (e DepositRegistered) GetType() EventType { return EventTypeDepositRegistered }
func (e LotteryFull) GetType() EventType       { return EventTypeLotteryFull }
func (e WinnerSelected) GetType() EventType    { return EventTypeWinnerSelected }
func (e RoundForceReset) GetType() EventType   { return EventTypeRoundForceReset }

func (e RoundStarted) GetRoundId() string      { return e.Id }
func (e DepositRegistered) GetRoundId() string { return e.Id }
func (e LotteryFull) GetRoundId() string       { return e.Id }
func (e WinnerSelected) GetRoundId() string    { return e.Id }
func (e RoundForceReset) GetRoundId() string   { return e.Id }

type RoundStarted struct {
	Id          string
	Number      uint64
	Initializer common.Address
	EntryValue  uint64
	Timestamp   int64
}

type DepositRegistered struct {
	Id          string
	Number      uint64
	Participant common.Address
	Amount      uint64
}

// LotteryFull is raised together with the deposit that takes the last seat.
type LotteryFull struct {
	Id           string
	Number       uint64
	Participants int
}

type WinnerSelected struct {
	Id         string
	Number     uint64
	Winner     common.Address
	Finalizer  common.Address
	Settlement Settlement
	Timestamp  int64
}

type RoundForceReset struct {
	Id        string
	Number    uint64
	ResetBy   common.Address
	Timestamp int64
}
