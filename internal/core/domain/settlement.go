package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var hundred = decimal.New(100, 0)

// FeePolicy expresses every share of the pool except the prize as a
// percentage. The winner always gets the remainder.
type FeePolicy struct {
	OwnerFeePercent          decimal.Decimal
	InitializerRewardPercent decimal.Decimal
	FinalizerRewardPercent   decimal.Decimal
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		OwnerFeePercent:          decimal.New(1, 0),
		InitializerRewardPercent: decimal.New(5, -1),
		FinalizerRewardPercent:   decimal.New(5, -1),
	}
}

func (f FeePolicy) Validate() error {
	shares := map[string]decimal.Decimal{
		"owner fee":          f.OwnerFeePercent,
		"initializer reward": f.InitializerRewardPercent,
		"finalizer reward":   f.FinalizerRewardPercent,
	}
	for name, pct := range shares {
		if pct.IsNegative() {
			return fmt.Errorf("%s percent must not be negative", name)
		}
	}
	total := f.OwnerFeePercent.Add(f.InitializerRewardPercent).Add(f.FinalizerRewardPercent)
	if total.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("fees and rewards must leave a prize, got %s%%", total)
	}
	return nil
}

func (f FeePolicy) Settle(
	pool uint64, owner, initializer, finalizer, winner common.Address,
) Settlement {
	ownerFee := share(pool, f.OwnerFeePercent)
	initializerReward := share(pool, f.InitializerRewardPercent)
	finalizerReward := share(pool, f.FinalizerRewardPercent)

	return Settlement{
		Pool:              pool,
		OwnerFee:          ownerFee,
		InitializerReward: initializerReward,
		FinalizerReward:   finalizerReward,
		Prize:             pool - ownerFee - initializerReward - finalizerReward,
		Owner:             owner,
		Initializer:       initializer,
		Finalizer:         finalizer,
		Winner:            winner,
	}
}

// share floors pool*pct/100 to base units.
func share(pool uint64, pct decimal.Decimal) uint64 {
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(pool), 0).
		Mul(pct).Div(hundred).Floor()
	return amount.BigInt().Uint64()
}

type PayoutReason string

const (
	PayoutOwnerFee          PayoutReason = "owner_fee"
	PayoutInitializerReward PayoutReason = "initializer_reward"
	PayoutFinalizerReward   PayoutReason = "finalizer_reward"
	PayoutPrize             PayoutReason = "prize"
)

type Payout struct {
	To     common.Address
	Amount uint64
	Reason PayoutReason
}

type Settlement struct {
	Pool              uint64
	OwnerFee          uint64
	InitializerReward uint64
	FinalizerReward   uint64
	Prize             uint64
	Owner             common.Address
	Initializer       common.Address
	Finalizer         common.Address
	Winner            common.Address
}

func (s Settlement) Total() uint64 {
	return s.OwnerFee + s.InitializerReward + s.FinalizerReward + s.Prize
}

// Payouts lists the transfers that empty the pool. Zero amounts are skipped.
func (s Settlement) Payouts() []Payout {
	all := []Payout{
		{To: s.Owner, Amount: s.OwnerFee, Reason: PayoutOwnerFee},
		{To: s.Initializer, Amount: s.InitializerReward, Reason: PayoutInitializerReward},
		{To: s.Finalizer, Amount: s.FinalizerReward, Reason: PayoutFinalizerReward},
		{To: s.Winner, Amount: s.Prize, Reason: PayoutPrize},
	}
	payouts := make([]Payout, 0, len(all))
	for _, p := range all {
		if p.Amount > 0 {
			payouts = append(payouts, p)
		}
	}
	return payouts
}
