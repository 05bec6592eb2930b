package application

import (
	"context"
	"time"

	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rcrowley/go-metrics"
)

type Service interface {
	Start() error
	Stop()
	StartNextRound(ctx context.Context, caller common.Address) (*RoundInfo, error)
	Deposit(ctx context.Context, caller common.Address, amount uint64) (*RoundInfo, error)
	SelectWinner(ctx context.Context, caller common.Address) (*domain.Settlement, error)
	ForceResetRound(ctx context.Context, caller common.Address) (*RoundInfo, error)
	GetInfo() Info
	GetRoundInfo() RoundInfo
	GetHistory() domain.History
	GetRound(ctx context.Context, number uint64) (*domain.Round, error)
	GetParticipant(addr common.Address) ParticipantInfo
	GetBalance(ctx context.Context, addr common.Address) (uint64, error)
	Faucet(ctx context.Context, addr common.Address, amount uint64) error
	GetEventsChannel(ctx context.Context) <-chan domain.RoundEvent
	GetMetrics() metrics.Registry
}

type Info struct {
	Owner           common.Address
	Custody         common.Address
	EntryValue      uint64
	MaxParticipants int
	RoundDuration   time.Duration
	Cooldown        time.Duration
	Fees            domain.FeePolicy
	FaucetEnabled   bool
}

// RoundInfo is a consistent snapshot of the current round taken from a
// single committed state.
type RoundInfo struct {
	Id                      string
	Number                  uint64
	Status                  domain.RoundStatus
	Stage                   domain.RoundStage
	Initializer             common.Address
	StartingTimestamp       int64
	PoolBalance             uint64
	Participants            []common.Address
	TimeLeftToClose         time.Duration
	TimeLeftToAllowNewRound time.Duration
}

type ParticipantInfo struct {
	Address       common.Address
	Participating bool
	Eligibility   domain.Eligibility
}

func newRoundInfo(l *domain.Lottery, now time.Time) RoundInfo {
	info := RoundInfo{
		Number:                  l.History.RoundNumber,
		Status:                  l.Status(),
		PoolBalance:             l.PoolBalance(),
		Participants:            []common.Address{},
		TimeLeftToClose:         l.TimeLeftToClose(now),
		TimeLeftToAllowNewRound: l.TimeLeftToAllowNewRound(now),
	}
	if l.Current != nil {
		info.Id = l.Current.Id
		info.Stage = l.Current.Stage
		info.Initializer = l.Current.Initializer
		info.StartingTimestamp = l.Current.StartingTimestamp
		if l.IsRunning() {
			info.Participants = l.Current.Participants.List()
		}
	}
	return info
}
