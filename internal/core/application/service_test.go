package application_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ark-network/lottery/internal/core/application"
	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ark-network/lottery/internal/core/ports"
	"github.com/ark-network/lottery/internal/infrastructure/db"
	badgerledger "github.com/ark-network/lottery/internal/infrastructure/ledger/badger"
	inmemoryledger "github.com/ark-network/lottery/internal/infrastructure/ledger/inmemory"
	scheduler "github.com/ark-network/lottery/internal/infrastructure/scheduler/gocron"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const entryValue = uint64(1_000_000_000)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	custody  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	account1 = common.HexToAddress("0x0000000000000000000000000000000000000001")
	account2 = common.HexToAddress("0x0000000000000000000000000000000000000002")
	account3 = common.HexToAddress("0x0000000000000000000000000000000000000003")
	account4 = common.HexToAddress("0x0000000000000000000000000000000000000004")
	account5 = common.HexToAddress("0x0000000000000000000000000000000000000005")

	testEntropy = [32]byte{0x42}
)

type fixedEntropy struct {
	entropy [32]byte
}

func (e fixedEntropy) BlockEntropy(context.Context) ([32]byte, error) {
	return e.entropy, nil
}

// flakyLedger rejects settlement batches while failBatches is set.
type flakyLedger struct {
	ports.Ledger
	failBatches atomic.Bool
}

func (l *flakyLedger) Transfer(ctx context.Context, transfers ...ports.Transfer) error {
	if l.failBatches.Load() && len(transfers) > 1 {
		return errors.New("payee rejected transfer")
	}
	return l.Ledger.Transfer(ctx, transfers...)
}

type flakyEventStore struct {
	domain.RoundEventRepository
	fail atomic.Bool
}

func (s *flakyEventStore) Save(
	ctx context.Context, id string, events ...domain.RoundEvent,
) (*domain.Round, error) {
	if s.fail.Load() {
		return nil, errors.New("disk full")
	}
	return s.RoundEventRepository.Save(ctx, id, events...)
}

type flakyRepoManager struct {
	ports.RepoManager
	events *flakyEventStore
}

func (m *flakyRepoManager) Events() domain.RoundEventRepository {
	return m.events
}

// lossyRoundStore drops projection updates while drop is set, like a process
// that crashes before its async projection catches up with the events.
type lossyRoundStore struct {
	domain.RoundRepository
	drop *atomic.Bool
}

func (s *lossyRoundStore) AddOrUpdateRound(ctx context.Context, round domain.Round) error {
	if s.drop.Load() {
		return nil
	}
	return s.RoundRepository.AddOrUpdateRound(ctx, round)
}

type lossyRepoManager struct {
	ports.RepoManager
	rounds *lossyRoundStore
}

func (m *lossyRepoManager) Rounds() domain.RoundRepository {
	return m.rounds
}

type testEnv struct {
	svc    application.Service
	clock  *quartz.Mock
	ledger *flakyLedger
	events *flakyEventStore
}

func testConfig() application.Config {
	return application.Config{
		Rules: domain.Rules{
			Owner:           owner,
			Custody:         custody,
			EntryValue:      entryValue,
			MaxParticipants: domain.DefaultMaxParticipants,
			RoundDuration:   domain.DefaultRoundDuration,
			Cooldown:        domain.DefaultRoundCooldown,
			Fees:            domain.DefaultFeePolicy(),
		},
		FaucetEnabled: true,
	}
}

func newTestEnv(t *testing.T, cfg application.Config) *testEnv {
	t.Helper()

	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	events := &flakyEventStore{RoundEventRepository: repoManager.Events()}
	ledger := &flakyLedger{Ledger: inmemoryledger.NewLedger()}
	clock := quartz.NewMock(t)

	svc, err := application.NewService(
		cfg, clock, ledger, fixedEntropy{testEntropy},
		scheduler.NewScheduler(), &flakyRepoManager{repoManager, events},
	)
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	return &testEnv{svc, clock, ledger, events}
}

func (e *testEnv) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.clock.Advance(d).MustWait(ctx)
}

func (e *testEnv) fund(t *testing.T, addrs ...common.Address) {
	t.Helper()
	for _, addr := range addrs {
		require.NoError(t, e.svc.Faucet(context.Background(), addr, entryValue))
	}
}

func (e *testEnv) requireBalance(t *testing.T, addr common.Address, expected uint64) {
	t.Helper()
	balance, err := e.svc.GetBalance(context.Background(), addr)
	require.NoError(t, err)
	require.Equal(t, expected, balance, addr.Hex())
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("settlement", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2, account3, account4)

		info, err := env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)
		require.Equal(t, uint64(1), info.Number)
		require.Equal(t, domain.Running, info.Status)
		require.Equal(t, domain.DefaultRoundDuration, info.TimeLeftToClose)

		for _, addr := range []common.Address{account2, account3, account4} {
			_, err := env.svc.Deposit(ctx, addr, entryValue)
			require.NoError(t, err)
			env.requireBalance(t, addr, 0)
		}
		env.requireBalance(t, custody, 3*entryValue)
		require.Equal(t, 3*entryValue, env.svc.GetRoundInfo().PoolBalance)

		_, err = env.svc.SelectWinner(ctx, account5)
		require.ErrorIs(t, err, domain.ErrRoundNotElapsed)

		env.advance(t, domain.DefaultRoundDuration)

		settlement, err := env.svc.SelectWinner(ctx, account5)
		require.NoError(t, err)
		require.Contains(t, []common.Address{account2, account3, account4}, settlement.Winner)

		env.requireBalance(t, custody, 0)
		env.requireBalance(t, owner, 30_000_000)
		env.requireBalance(t, account1, 15_000_000)
		env.requireBalance(t, account5, 15_000_000)
		env.requireBalance(t, settlement.Winner, 2_940_000_000)

		info2 := env.svc.GetRoundInfo()
		require.Equal(t, domain.WaitingNewRound, info2.Status)
		require.Zero(t, info2.PoolBalance)
		require.Equal(t, uint64(1), info2.Number)
		require.Equal(t, domain.DefaultRoundCooldown, info2.TimeLeftToAllowNewRound)

		history := env.svc.GetHistory()
		require.Equal(t, settlement.Winner, history.LastWinner)
		require.Equal(t, settlement.Prize, history.LastPrize)
		require.Equal(t, account5, history.LastFinalizer)
		require.Equal(t, account1, history.LastInitializer)

		_, err = env.svc.StartNextRound(ctx, account2)
		require.ErrorIs(t, err, domain.ErrCooldownNotElapsed)
		env.advance(t, domain.DefaultRoundCooldown)
		_, err = env.svc.StartNextRound(ctx, account1)
		require.ErrorIs(t, err, domain.ErrRepeatInitializer)
		info, err = env.svc.StartNextRound(ctx, account2)
		require.NoError(t, err)
		require.Equal(t, uint64(2), info.Number)

		// The settled round is served from the projection store.
		require.Eventually(t, func() bool {
			round, err := env.svc.GetRound(ctx, 1)
			return err == nil && round.IsSettled()
		}, 5*time.Second, 20*time.Millisecond)
		round, err := env.svc.GetRound(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, settlement.Winner, round.Winner)
		require.Len(t, round.Participants.List(), 3)

		_, err = env.svc.GetRound(ctx, 42)
		require.ErrorIs(t, err, application.ErrRoundNotFound)
	})

	t.Run("force_reset", func(t *testing.T) {
		env := newTestEnv(t, testConfig())

		_, err := env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)

		_, err = env.svc.ForceResetRound(ctx, owner)
		require.ErrorIs(t, err, domain.ErrRoundNotElapsed)

		env.advance(t, domain.DefaultRoundDuration)
		_, err = env.svc.ForceResetRound(ctx, account2)
		require.ErrorIs(t, err, domain.ErrNotOwner)

		info, err := env.svc.ForceResetRound(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, domain.WaitingNewRound, info.Status)
		require.Equal(t, domain.ResetStage, info.Stage)
		require.Zero(t, info.PoolBalance)
		require.Equal(t, uint64(1), info.Number)

		round, err := env.svc.GetRound(ctx, 1)
		require.NoError(t, err)
		require.True(t, round.IsReset())
		require.Equal(t, owner, round.ResetBy)
	})

	t.Run("deposit", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2)
		require.NoError(t, env.svc.Faucet(ctx, account2, entryValue))

		_, err := env.svc.Deposit(ctx, account2, entryValue)
		require.ErrorIs(t, err, domain.ErrRoundNotRunning)

		_, err = env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)

		fixtures := []struct {
			name        string
			caller      common.Address
			amount      uint64
			expectedErr error
		}{
			{"half stake", account2, entryValue / 2, domain.ErrWrongStake},
			{"double stake", account2, entryValue * 2, domain.ErrWrongStake},
			{"owner", owner, entryValue, domain.ErrOwnerCannotParticipate},
			{"no funds", account3, entryValue, ports.ErrInsufficientFunds},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				_, err := env.svc.Deposit(ctx, f.caller, f.amount)
				require.ErrorIs(t, err, f.expectedErr)
				require.Zero(t, env.svc.GetRoundInfo().PoolBalance)
				env.requireBalance(t, custody, 0)
			})
		}

		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.NoError(t, err)
		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.ErrorIs(t, err, domain.ErrDuplicateParticipant)

		require.Len(t, env.svc.GetRoundInfo().Participants, 1)
		env.requireBalance(t, account2, entryValue)
		env.requireBalance(t, custody, entryValue)

		participant := env.svc.GetParticipant(account2)
		require.True(t, participant.Participating)
		require.False(t, participant.Eligibility.CanDeposit)
		require.False(t, env.svc.GetParticipant(account3).Participating)
	})

	t.Run("settlement_rollback", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2, account3)

		_, err := env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)
		for _, addr := range []common.Address{account2, account3} {
			_, err := env.svc.Deposit(ctx, addr, entryValue)
			require.NoError(t, err)
		}
		env.advance(t, domain.DefaultRoundDuration)

		historyBefore := env.svc.GetHistory()
		env.ledger.failBatches.Store(true)

		_, err = env.svc.SelectWinner(ctx, account4)
		require.Error(t, err)

		info := env.svc.GetRoundInfo()
		require.Equal(t, domain.Running, info.Status)
		require.Equal(t, 2*entryValue, info.PoolBalance)
		require.Len(t, info.Participants, 2)
		require.Equal(t, historyBefore, env.svc.GetHistory())
		env.requireBalance(t, custody, 2*entryValue)
		env.requireBalance(t, owner, 0)

		// A failed payout is not a halt: the call can be retried.
		env.ledger.failBatches.Store(false)
		settlement, err := env.svc.SelectWinner(ctx, account4)
		require.NoError(t, err)
		require.Equal(t, 2*entryValue, settlement.Total())
		env.requireBalance(t, custody, 0)
	})

	t.Run("halt", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2)

		// Nothing moved yet, so a storage failure only aborts the call.
		env.events.fail.Store(true)
		_, err := env.svc.StartNextRound(ctx, account1)
		require.Error(t, err)
		require.NotErrorIs(t, err, application.ErrEngineHalted)
		require.Equal(t, domain.WaitingNewRound, env.svc.GetRoundInfo().Status)

		env.events.fail.Store(false)
		_, err = env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)

		env.events.fail.Store(true)
		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.ErrorIs(t, err, application.ErrEngineHalted)

		env.events.fail.Store(false)
		_, err = env.svc.Deposit(ctx, account3, entryValue)
		require.ErrorIs(t, err, application.ErrEngineHalted)
		env.advance(t, domain.DefaultRoundDuration)
		_, err = env.svc.ForceResetRound(ctx, owner)
		require.ErrorIs(t, err, application.ErrEngineHalted)

		// Reads keep working on the last committed state.
		require.Zero(t, env.svc.GetRoundInfo().PoolBalance)
		env.requireBalance(t, custody, entryValue)
	})

	t.Run("faucet", func(t *testing.T) {
		env := newTestEnv(t, testConfig())

		require.ErrorIs(t, env.svc.Faucet(ctx, custody, 1), application.ErrInvalidAddress)
		require.ErrorIs(t, env.svc.Faucet(ctx, common.Address{}, 1), application.ErrInvalidAddress)
		require.ErrorIs(t, env.svc.Faucet(ctx, account1, 0), application.ErrInvalidAmount)

		cfg := testConfig()
		cfg.FaucetEnabled = false
		disabled := newTestEnv(t, cfg)
		require.ErrorIs(t, disabled.svc.Faucet(ctx, account1, 1), application.ErrFaucetDisabled)
		require.False(t, disabled.svc.GetInfo().FaucetEnabled)
	})

	t.Run("events", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2)

		subCtx, cancel := context.WithCancel(ctx)
		events := env.svc.GetEventsChannel(subCtx)

		_, err := env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)
		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.NoError(t, err)

		for _, expected := range []domain.EventType{
			domain.EventTypeRoundStarted, domain.EventTypeDepositRegistered,
		} {
			select {
			case event := <-events:
				require.Equal(t, expected, event.GetType())
			case <-time.After(5 * time.Second):
				t.Fatalf("missing %s event", expected)
			}
		}

		cancel()
		require.Eventually(t, func() bool {
			_, ok := <-events
			return !ok
		}, 5*time.Second, 20*time.Millisecond)
	})

	t.Run("consistent_reads", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		_, err := env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)

		participants := make([]common.Address, 50)
		for i := range participants {
			participants[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		}
		env.fund(t, participants...)

		done := make(chan struct{})
		wg := &sync.WaitGroup{}
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-done:
						return
					default:
					}
					info := env.svc.GetRoundInfo()
					if info.PoolBalance != uint64(len(info.Participants))*entryValue {
						t.Errorf("inconsistent snapshot: pool %d with %d participants",
							info.PoolBalance, len(info.Participants))
						return
					}
				}
			}()
		}

		for _, addr := range participants {
			_, err := env.svc.Deposit(ctx, addr, entryValue)
			require.NoError(t, err)
		}
		close(done)
		wg.Wait()

		require.Len(t, env.svc.GetRoundInfo().Participants, len(participants))
	})

	t.Run("custody", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2)

		_, err := env.svc.StartNextRound(ctx, custody)
		require.ErrorIs(t, err, domain.ErrCustodyNotAllowed)
		require.Equal(t, domain.WaitingNewRound, env.svc.GetRoundInfo().Status)
		require.False(t, env.svc.GetParticipant(custody).Eligibility.CanStartRound)

		_, err = env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)
		_, err = env.svc.Deposit(ctx, custody, entryValue)
		require.ErrorIs(t, err, domain.ErrCustodyNotAllowed)
		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.NoError(t, err)

		env.advance(t, domain.DefaultRoundDuration)
		require.False(t, env.svc.GetParticipant(custody).Eligibility.CanSelectWinner)
		_, err = env.svc.SelectWinner(ctx, custody)
		require.ErrorIs(t, err, domain.ErrCustodyNotAllowed)
		env.requireBalance(t, custody, entryValue)

		settlement, err := env.svc.SelectWinner(ctx, account3)
		require.NoError(t, err)
		require.Equal(t, account2, settlement.Winner)
		env.requireBalance(t, custody, 0)
	})

	t.Run("invalid_rules", func(t *testing.T) {
		oneEther := testConfig()
		oneEther.Rules.EntryValue = 1_000_000_000_000_000_000

		custodyIsOwner := testConfig()
		custodyIsOwner.Rules.Custody = owner

		noCustody := testConfig()
		noCustody.Rules.Custody = common.Address{}

		fixtures := []struct {
			name string
			cfg  application.Config
		}{
			{"one ether with 1000 seats", oneEther},
			{"custody is owner", custodyIsOwner},
			{"missing custody", noCustody},
		}

		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				svc, err := application.NewService(
					f.cfg, quartz.NewMock(t), inmemoryledger.NewLedger(),
					fixedEntropy{testEntropy}, scheduler.NewScheduler(), nil,
				)
				require.Error(t, err)
				require.Nil(t, svc)
			})
		}
	})

	t.Run("metrics", func(t *testing.T) {
		env := newTestEnv(t, testConfig())
		env.fund(t, account2)

		_, err := env.svc.StartNextRound(ctx, account1)
		require.NoError(t, err)
		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.NoError(t, err)
		_, err = env.svc.Deposit(ctx, account2, entryValue)
		require.Error(t, err)

		registry := env.svc.GetMetrics()
		snapshot := registry.GetAll()
		require.EqualValues(t, 1, snapshot["lottery.rounds.started"]["count"])
		require.EqualValues(t, 1, snapshot["lottery.deposits"]["count"])
		require.EqualValues(t, 1, snapshot["lottery.calls.rejected"]["count"])
		require.EqualValues(t, entryValue, snapshot["lottery.round.pool"]["value"])
	})
}

func TestServiceRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := quartz.NewMock(t)

	newService := func() application.Service {
		repoManager, err := db.NewService(db.ServiceConfig{
			EventStoreType:   "badger",
			DataStoreType:    "sqlite",
			EventStoreConfig: []interface{}{dir, nil},
			DataStoreConfig:  []interface{}{dir},
		})
		require.NoError(t, err)
		ledger, err := badgerledger.NewLedger(dir, nil)
		require.NoError(t, err)

		svc, err := application.NewService(
			testConfig(), clock, ledger, fixedEntropy{testEntropy},
			scheduler.NewScheduler(), repoManager,
		)
		require.NoError(t, err)
		require.NoError(t, svc.Start())
		return svc
	}

	svc := newService()
	for _, addr := range []common.Address{account2, account3, account4} {
		require.NoError(t, svc.Faucet(ctx, addr, entryValue))
	}

	_, err := svc.StartNextRound(ctx, account1)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, account2, entryValue)
	require.NoError(t, err)
	clock.Advance(domain.DefaultRoundDuration).MustWait(ctx)
	settlement, err := svc.SelectWinner(ctx, account3)
	require.NoError(t, err)

	clock.Advance(domain.DefaultRoundCooldown).MustWait(ctx)
	_, err = svc.StartNextRound(ctx, account4)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, account4, entryValue)
	require.NoError(t, err)
	before := svc.GetRoundInfo()
	svc.Stop()

	svc = newService()
	defer svc.Stop()

	after := svc.GetRoundInfo()
	require.Equal(t, before.Id, after.Id)
	require.Equal(t, uint64(2), after.Number)
	require.Equal(t, domain.Running, after.Status)
	require.Equal(t, entryValue, after.PoolBalance)
	require.Equal(t, []common.Address{account4}, after.Participants)

	history := svc.GetHistory()
	require.Equal(t, account4, history.LastInitializer)
	require.Equal(t, account3, history.LastFinalizer)
	require.Equal(t, settlement.Winner, history.LastWinner)
	require.Equal(t, settlement.Prize, history.LastPrize)

	// Guards still see the restored roles and the engine is not halted.
	_, err = svc.Deposit(ctx, account4, entryValue)
	require.ErrorIs(t, err, domain.ErrDuplicateParticipant)
	clock.Advance(domain.DefaultRoundDuration).MustWait(ctx)
	_, err = svc.SelectWinner(ctx, account3)
	require.ErrorIs(t, err, domain.ErrRepeatFinalizer)
	_, err = svc.SelectWinner(ctx, account2)
	require.NoError(t, err)
}

func TestServiceRestartWithStaleProjection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := quartz.NewMock(t)
	drop := &atomic.Bool{}

	newRepoManager := func() ports.RepoManager {
		repoManager, err := db.NewService(db.ServiceConfig{
			EventStoreType:   "badger",
			DataStoreType:    "sqlite",
			EventStoreConfig: []interface{}{dir, nil},
			DataStoreConfig:  []interface{}{dir},
		})
		require.NoError(t, err)
		return repoManager
	}
	newService := func(repoManager ports.RepoManager) application.Service {
		ledger, err := badgerledger.NewLedger(dir, nil)
		require.NoError(t, err)

		svc, err := application.NewService(
			testConfig(), clock, ledger, fixedEntropy{testEntropy},
			scheduler.NewScheduler(), &lossyRepoManager{
				repoManager, &lossyRoundStore{repoManager.Rounds(), drop},
			},
		)
		require.NoError(t, err)
		require.NoError(t, svc.Start())
		return svc
	}

	repoManager := newRepoManager()
	svc := newService(repoManager)
	for _, addr := range []common.Address{account2, account3} {
		require.NoError(t, svc.Faucet(ctx, addr, entryValue))
	}

	_, err := svc.StartNextRound(ctx, account1)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, account2, entryValue)
	require.NoError(t, err)
	clock.Advance(domain.DefaultRoundDuration).MustWait(ctx)
	_, err = svc.SelectWinner(ctx, account3)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		round, err := repoManager.Rounds().GetRoundWithNumber(ctx, 1)
		return err == nil && round.IsSettled()
	}, 5*time.Second, 10*time.Millisecond)

	// Round 2 reaches the event store but never the projection.
	drop.Store(true)
	clock.Advance(domain.DefaultRoundCooldown).MustWait(ctx)
	started, err := svc.StartNextRound(ctx, account4)
	require.NoError(t, err)
	require.Equal(t, uint64(2), started.Number)
	svc.Stop()

	repoManager = newRepoManager()
	latest, err := repoManager.Rounds().GetLatestRounds(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, uint64(1), latest[0].Number)

	drop.Store(false)
	svc = newService(repoManager)
	defer svc.Stop()

	restored := svc.GetRoundInfo()
	require.Equal(t, started.Id, restored.Id)
	require.Equal(t, uint64(2), restored.Number)
	require.Equal(t, domain.Running, restored.Status)
	require.Equal(t, account4, svc.GetHistory().LastInitializer)

	projected, err := repoManager.Rounds().GetRoundWithNumber(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, started.Id, projected.Id)
	require.True(t, projected.IsRunning())

	// Numbering carries on from the event store.
	clock.Advance(domain.DefaultRoundDuration).MustWait(ctx)
	_, err = svc.ForceResetRound(ctx, owner)
	require.NoError(t, err)
	clock.Advance(domain.DefaultRoundCooldown).MustWait(ctx)
	next, err := svc.StartNextRound(ctx, account1)
	require.NoError(t, err)
	require.Equal(t, uint64(3), next.Number)
	require.NotEqual(t, started.Id, next.Id)

	require.Eventually(t, func() bool {
		round, err := repoManager.Rounds().GetRoundWithNumber(ctx, 3)
		return err == nil && round.Id == next.Id
	}, 5*time.Second, 10*time.Millisecond)
}
