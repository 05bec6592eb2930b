package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ark-network/lottery/internal/core/ports"
	"github.com/coder/quartz"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

const closedRoundsCacheSize = 256

var (
	// ErrEngineHalted is returned by every mutation once the engine detected
	// that funds and state may have diverged. Only an operator restart clears
	// it.
	ErrEngineHalted   = errors.New("engine halted")
	ErrFaucetDisabled = errors.New("faucet disabled")
	ErrInvalidAmount  = errors.New("amount must be greater than 0")
	ErrInvalidAddress = errors.New("invalid address")
	ErrRoundNotFound  = errors.New("round not found")
)

type Config struct {
	Rules         domain.Rules
	FaucetEnabled bool
	// GCInterval is the period in seconds of the store garbage collection,
	// 0 disables it.
	GCInterval int64
}

func (c Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("gc interval must not be negative")
	}
	return nil
}

type service struct {
	cfg Config

	clock       quartz.Clock
	ledger      ports.Ledger
	entropy     ports.EntropyProvider
	scheduler   ports.SchedulerService
	repoManager ports.RepoManager

	// lock serializes writers. Readers only ever load state.
	lock       *sync.Mutex
	state      atomic.Pointer[domain.Lottery]
	haltReason atomic.Pointer[error]

	closedRounds *lru.Cache
	metrics      *engineMetrics
	broker       *eventsBroker
}

func NewService(
	cfg Config, clock quartz.Clock,
	ledger ports.Ledger, entropy ports.EntropyProvider,
	scheduler ports.SchedulerService, repoManager ports.RepoManager,
) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	closedRounds, err := lru.New(closedRoundsCacheSize)
	if err != nil {
		return nil, err
	}

	svc := &service{
		cfg:          cfg,
		clock:        clock,
		ledger:       ledger,
		entropy:      entropy,
		scheduler:    scheduler,
		repoManager:  repoManager,
		lock:         &sync.Mutex{},
		closedRounds: closedRounds,
		metrics:      newEngineMetrics(),
		broker:       newEventsBroker(),
	}
	svc.state.Store(domain.NewLottery(cfg.Rules))

	repoManager.RegisterEventsHandler(
		func(round *domain.Round) {
			if err := svc.updateProjectionStore(round); err != nil {
				log.WithError(err).Warnf("failed to update projection of round %d", round.Number)
			}
		},
	)

	return svc, nil
}

func (s *service) Start() error {
	ctx := context.Background()
	if err := s.restore(ctx); err != nil {
		return fmt.Errorf("failed to restore lottery state: %w", err)
	}

	if s.cfg.GCInterval > 0 {
		if err := s.scheduler.ScheduleTask(
			s.cfg.GCInterval, false, s.repoManager.GarbageCollect,
		); err != nil {
			return err
		}
	}
	s.scheduler.Start()

	lottery := s.state.Load()
	log.Infof(
		"lottery engine started at round %d (%s)",
		lottery.History.RoundNumber, lottery.Status(),
	)
	return nil
}

func (s *service) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.scheduler.Stop()
	log.Debug("scheduler stopped")
	s.broker.close()
	s.repoManager.Close()
	log.Debug("closed connection to db")
	s.ledger.Close()
	log.Debug("closed ledger")
}

func (s *service) StartNextRound(
	ctx context.Context, caller common.Address,
) (*RoundInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.checkHalted(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	next := s.state.Load().Clone()
	events, err := next.StartNextRound(caller, now)
	if err != nil {
		return nil, s.reject(err)
	}

	// Nothing moved yet, a storage failure simply aborts the call.
	if err := s.saveEvents(ctx, next.Current.Id, events); err != nil {
		return nil, err
	}
	s.commit(ctx, next, events)
	s.metrics.roundsStarted.Inc(1)

	log.Debugf("round %d started by %s", next.Current.Number, caller)

	info := newRoundInfo(next, now)
	return &info, nil
}

func (s *service) Deposit(
	ctx context.Context, caller common.Address, amount uint64,
) (*RoundInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.checkHalted(); err != nil {
		return nil, err
	}

	next := s.state.Load().Clone()
	events, err := next.Deposit(caller, amount)
	if err != nil {
		return nil, s.reject(err)
	}

	if err := s.ledger.Transfer(ctx, ports.Transfer{
		From: caller, To: s.cfg.Rules.Custody, Amount: amount,
	}); err != nil {
		s.metrics.rejected.Inc(1)
		return nil, fmt.Errorf("failed to collect entry stake: %w", err)
	}
	if err := s.saveEvents(ctx, next.Current.Id, events); err != nil {
		return nil, s.halt(fmt.Errorf(
			"stake of %s collected but deposit not stored: %w", caller, err,
		))
	}
	s.commit(ctx, next, events)
	s.metrics.deposits.Inc(1)

	log.Debugf(
		"deposit of %s registered in round %d (%d participants)",
		caller, next.Current.Number, next.ParticipantsCount(),
	)
	for _, e := range events {
		if full, ok := e.(domain.LotteryFull); ok {
			log.Infof("round %d is full with %d participants", full.Number, full.Participants)
		}
	}

	info := newRoundInfo(next, s.clock.Now())
	return &info, nil
}

func (s *service) SelectWinner(
	ctx context.Context, caller common.Address,
) (*domain.Settlement, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.checkHalted(); err != nil {
		return nil, err
	}

	started := time.Now()
	current := s.state.Load()

	// Validate before asking for entropy, a rejected call should not cost a
	// round trip to the provider.
	probe := current.Clone()
	if _, err := probe.SelectWinner(caller, [32]byte{}, s.clock.Now()); err != nil {
		if errors.Is(err, domain.ErrPoolMismatch) {
			return nil, s.halt(err)
		}
		return nil, s.reject(err)
	}

	entropy, err := s.entropy.BlockEntropy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block entropy: %w", err)
	}

	next := current.Clone()
	events, err := next.SelectWinner(caller, entropy, s.clock.Now())
	if err != nil {
		return nil, s.reject(err)
	}

	var settlement domain.Settlement
	for _, e := range events {
		if selected, ok := e.(domain.WinnerSelected); ok {
			settlement = selected.Settlement
		}
	}

	payouts := settlement.Payouts()
	transfers := make([]ports.Transfer, 0, len(payouts))
	for _, p := range payouts {
		transfers = append(transfers, ports.Transfer{
			From: s.cfg.Rules.Custody, To: p.To, Amount: p.Amount,
		})
	}
	// One batch: either every payee is paid or none is, and the committed
	// state (history included) stays as it was.
	if err := s.ledger.Transfer(ctx, transfers...); err != nil {
		log.WithError(err).Warnf("settlement of round %d failed", next.Current.Number)
		return nil, fmt.Errorf("failed to pay out settlement: %w", err)
	}
	if err := s.saveEvents(ctx, next.Current.Id, events); err != nil {
		return nil, s.halt(fmt.Errorf(
			"round %d paid out but settlement not stored: %w", next.Current.Number, err,
		))
	}
	s.commit(ctx, next, events)
	s.metrics.settled(settlement)
	s.metrics.settleTimer.UpdateSince(started)

	log.Infof(
		"round %d settled: winner %s prize %d, owner fee %d",
		next.Current.Number, settlement.Winner, settlement.Prize, settlement.OwnerFee,
	)

	return &settlement, nil
}

func (s *service) ForceResetRound(
	ctx context.Context, caller common.Address,
) (*RoundInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.checkHalted(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	next := s.state.Load().Clone()
	events, err := next.ForceResetRound(caller, now)
	if err != nil {
		return nil, s.reject(err)
	}

	if err := s.saveEvents(ctx, next.Current.Id, events); err != nil {
		return nil, err
	}
	s.commit(ctx, next, events)
	s.metrics.resets.Inc(1)

	log.Infof("round %d force reset by %s", next.Current.Number, caller)

	info := newRoundInfo(next, now)
	return &info, nil
}

func (s *service) GetInfo() Info {
	rules := s.cfg.Rules
	return Info{
		Owner:           rules.Owner,
		Custody:         s.cfg.Rules.Custody,
		EntryValue:      rules.EntryValue,
		MaxParticipants: rules.MaxParticipants,
		RoundDuration:   rules.RoundDuration,
		Cooldown:        rules.Cooldown,
		Fees:            rules.Fees,
		FaucetEnabled:   s.cfg.FaucetEnabled,
	}
}

func (s *service) GetRoundInfo() RoundInfo {
	return newRoundInfo(s.state.Load(), s.clock.Now())
}

func (s *service) GetHistory() domain.History {
	return s.state.Load().History
}

func (s *service) GetRound(ctx context.Context, number uint64) (*domain.Round, error) {
	if current := s.state.Load().Current; current != nil && current.Number == number {
		return current.Clone(), nil
	}

	if cached, ok := s.closedRounds.Get(number); ok {
		round := cached.(domain.Round)
		return &round, nil
	}

	round, err := s.repoManager.Rounds().GetRoundWithNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrRoundNotFound, number)
	}
	if round.IsClosed() {
		s.closedRounds.Add(number, *round)
	}
	return round, nil
}

func (s *service) GetParticipant(addr common.Address) ParticipantInfo {
	lottery := s.state.Load()
	return ParticipantInfo{
		Address:       addr,
		Participating: lottery.IsParticipating(addr),
		Eligibility:   lottery.Eligibility(addr),
	}
}

func (s *service) GetBalance(ctx context.Context, addr common.Address) (uint64, error) {
	return s.ledger.Balance(ctx, addr)
}

func (s *service) Faucet(ctx context.Context, addr common.Address, amount uint64) error {
	if !s.cfg.FaucetEnabled {
		return ErrFaucetDisabled
	}
	if addr == (common.Address{}) || addr == s.cfg.Rules.Custody {
		return ErrInvalidAddress
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := s.ledger.Credit(ctx, addr, amount); err != nil {
		return err
	}
	log.Debugf("faucet credited %d to %s", amount, addr)
	return nil
}

func (s *service) GetEventsChannel(ctx context.Context) <-chan domain.RoundEvent {
	return s.broker.subscribe(ctx)
}

func (s *service) GetMetrics() metrics.Registry {
	return s.metrics.registry
}

// restore rebuilds the state from the events of the latest two rounds, which
// is all the history the guards and views need. The event store is the
// source of truth: the projection is updated asynchronously and may lag
// behind it after a crash, so it is brought up to date here.
func (s *service) restore(ctx context.Context) error {
	latest, err := s.repoManager.Events().LoadLatest(ctx, 2)
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return nil
	}

	rounds := make([]*domain.Round, 0, len(latest))
	for i := len(latest) - 1; i >= 0; i-- {
		round := latest[i]
		if err := s.reconcileProjection(ctx, round); err != nil {
			return fmt.Errorf("failed to project round %d: %w", round.Number, err)
		}
		rounds = append(rounds, round)
	}

	lottery := domain.NewLotteryFromRounds(s.cfg.Rules, rounds...)
	s.state.Store(lottery)
	s.metrics.update(lottery)
	s.checkInvariants(ctx, lottery)

	log.Debugf("restored lottery state from %d rounds", len(rounds))
	return nil
}

func (s *service) reconcileProjection(ctx context.Context, round *domain.Round) error {
	stored, err := s.repoManager.Rounds().GetRoundWithId(ctx, round.Id)
	if err == nil && stored.Version >= round.Version {
		return nil
	}
	log.Infof("projection of round %d is behind its events, updating", round.Number)
	return s.repoManager.Rounds().AddOrUpdateRound(ctx, *round)
}

func (s *service) saveEvents(ctx context.Context, id string, events []domain.RoundEvent) error {
	if _, err := s.repoManager.Events().Save(ctx, id, events...); err != nil {
		log.WithError(err).Warn("failed to store round events")
		return fmt.Errorf("failed to store round events: %w", err)
	}
	return nil
}

// commit publishes next as the new committed state. next must not be mutated
// afterwards since readers share it.
func (s *service) commit(ctx context.Context, next *domain.Lottery, events []domain.RoundEvent) {
	s.state.Store(next)
	s.metrics.update(next)
	s.broker.publish(events)
	s.checkInvariants(ctx, next)
}

func (s *service) checkInvariants(ctx context.Context, l *domain.Lottery) {
	if l.Current != nil {
		if err := l.Current.CheckPool(); err != nil {
			s.halt(err)
			return
		}
	}

	balance, err := s.ledger.Balance(ctx, s.cfg.Rules.Custody)
	if err != nil {
		log.WithError(err).Warn("failed to read custody balance")
		return
	}
	if balance != l.PoolBalance() {
		s.halt(fmt.Errorf(
			"%w: custody holds %d, pool is %d",
			domain.ErrPoolMismatch, balance, l.PoolBalance(),
		))
	}
}

func (s *service) updateProjectionStore(round *domain.Round) error {
	ctx := context.Background()
	if err := s.repoManager.Rounds().AddOrUpdateRound(ctx, *round); err != nil {
		return err
	}
	if round.IsClosed() {
		s.closedRounds.Add(round.Number, *round)
	}
	log.Debugf("updated projection of round %d (%s)", round.Number, round.Stage)
	return nil
}

func (s *service) reject(err error) error {
	s.metrics.rejected.Inc(1)
	return err
}

func (s *service) halt(reason error) error {
	s.haltReason.CompareAndSwap(nil, &reason)
	log.WithError(reason).Error("lottery engine halted, operator action required")
	return fmt.Errorf("%w: %s", ErrEngineHalted, reason)
}

func (s *service) checkHalted() error {
	if reason := s.haltReason.Load(); reason != nil {
		return fmt.Errorf("%w: %s", ErrEngineHalted, *reason)
	}
	return nil
}
