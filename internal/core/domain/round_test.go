package domain_test

import (
	"math/big"
	"testing"

	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	t.Run("new_round", func(t *testing.T) {
		round := domain.NewRound(3, entryValue)
		require.NotEmpty(t, round.Id)
		require.Equal(t, uint64(3), round.Number)
		require.Equal(t, domain.UndefinedStage, round.Stage)
		require.Equal(t, domain.WaitingNewRound, round.Status())
		require.Empty(t, round.Events())
		require.NoError(t, round.CheckPool())
	})

	t.Run("from_events", func(t *testing.T) {
		lottery := settledLottery(t)
		round := lottery.Current
		require.Len(t, round.Events(), 3)

		replayed := domain.NewRoundFromEvents(round.Events())
		require.Equal(t, round.Id, replayed.Id)
		require.Equal(t, round.Number, replayed.Number)
		require.Equal(t, round.Stage, replayed.Stage)
		require.Equal(t, round.Winner, replayed.Winner)
		require.Equal(t, round.Settlement, replayed.Settlement)
		require.Equal(t, round.Participants.List(), replayed.Participants.List())
		require.Equal(t, uint(3), replayed.Version)
		require.Zero(t, replayed.PoolBalance)
		require.True(t, replayed.IsSettled())
		require.True(t, replayed.IsClosed())
		require.NoError(t, replayed.CheckPool())
	})

	t.Run("reset", func(t *testing.T) {
		lottery := runningLottery(t)
		_, err := lottery.ForceResetRound(owner, t0.Add(domain.DefaultRoundDuration))
		require.NoError(t, err)

		replayed := domain.NewRoundFromEvents(lottery.Current.Events())
		require.True(t, replayed.IsReset())
		require.True(t, replayed.IsClosed())
		require.Equal(t, owner, replayed.ResetBy)
		require.Equal(t, t0.Add(domain.DefaultRoundDuration).Unix(), replayed.EndingTimestamp)
	})

	t.Run("clone", func(t *testing.T) {
		lottery := runningLottery(t)
		_, err := lottery.Deposit(account2, entryValue)
		require.NoError(t, err)

		original := lottery.Current
		clone := lottery.Clone()
		_, err = clone.Deposit(account3, entryValue)
		require.NoError(t, err)

		require.Equal(t, 1, original.Participants.Count())
		require.False(t, original.Participants.Has(account3))
		require.Len(t, original.Events(), 2)
		require.Equal(t, entryValue, original.PoolBalance)
		require.Equal(t, 2, clone.ParticipantsCount())
	})

	t.Run("check_pool", func(t *testing.T) {
		lottery := runningLottery(t)
		_, err := lottery.Deposit(account2, entryValue)
		require.NoError(t, err)
		require.NoError(t, lottery.Current.CheckPool())

		lottery.Current.PoolBalance--
		require.ErrorIs(t, lottery.Current.CheckPool(), domain.ErrPoolMismatch)
	})

	t.Run("check_pool_overflow", func(t *testing.T) {
		oneEther := uint64(1_000_000_000_000_000_000)
		events := []domain.RoundEvent{domain.RoundStarted{
			Id: "round", Number: 1, Initializer: account1, EntryValue: oneEther,
		}}
		for i := 0; i < 19; i++ {
			events = append(events, domain.DepositRegistered{
				Id:          "round",
				Number:      1,
				Participant: common.BigToAddress(big.NewInt(int64(0x100 + i))),
				Amount:      oneEther,
			})
		}

		round := domain.NewRoundFromEvents(events)
		require.Equal(t, 19, round.Participants.Count())
		require.ErrorIs(t, round.CheckPool(), domain.ErrPoolMismatch)
	})

	t.Run("stage_strings", func(t *testing.T) {
		require.Equal(t, "RUNNING_STAGE", domain.RunningStage.String())
		require.Equal(t, "RUNNING", domain.Running.String())
		require.Equal(t, "WAITING_NEW_ROUND", domain.WaitingNewRound.String())
		require.Equal(t, "NewDeposit", domain.EventTypeDepositRegistered.String())
	})
}
