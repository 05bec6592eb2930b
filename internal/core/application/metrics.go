package application

import (
	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/rcrowley/go-metrics"
)

type engineMetrics struct {
	registry metrics.Registry

	roundsStarted metrics.Counter
	deposits      metrics.Counter
	settlements   metrics.Counter
	resets        metrics.Counter
	rejected      metrics.Counter

	roundNumber  metrics.Gauge
	poolBalance  metrics.Gauge
	participants metrics.Gauge
	paidOut      metrics.Counter
	ownerFees    metrics.Counter
	settleTimer  metrics.Timer
}

func newEngineMetrics() *engineMetrics {
	r := metrics.NewRegistry()
	return &engineMetrics{
		registry:      r,
		roundsStarted: metrics.NewRegisteredCounter("lottery.rounds.started", r),
		deposits:      metrics.NewRegisteredCounter("lottery.deposits", r),
		settlements:   metrics.NewRegisteredCounter("lottery.rounds.settled", r),
		resets:        metrics.NewRegisteredCounter("lottery.rounds.reset", r),
		rejected:      metrics.NewRegisteredCounter("lottery.calls.rejected", r),
		roundNumber:   metrics.NewRegisteredGauge("lottery.round.number", r),
		poolBalance:   metrics.NewRegisteredGauge("lottery.round.pool", r),
		participants:  metrics.NewRegisteredGauge("lottery.round.participants", r),
		paidOut:       metrics.NewRegisteredCounter("lottery.settlement.paid_out", r),
		ownerFees:     metrics.NewRegisteredCounter("lottery.settlement.owner_fees", r),
		settleTimer:   metrics.NewRegisteredTimer("lottery.settlement.duration", r),
	}
}

func (m *engineMetrics) update(l *domain.Lottery) {
	m.roundNumber.Update(int64(l.History.RoundNumber))
	m.poolBalance.Update(int64(l.PoolBalance()))
	m.participants.Update(int64(l.ParticipantsCount()))
}

func (m *engineMetrics) settled(s domain.Settlement) {
	m.settlements.Inc(1)
	m.paidOut.Inc(int64(s.Total()))
	m.ownerFees.Inc(int64(s.OwnerFee))
}
