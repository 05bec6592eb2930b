package inmemoryledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ark-network/lottery/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
)

type ledger struct {
	lock     *sync.RWMutex
	balances map[common.Address]uint64
}

func NewLedger() ports.Ledger {
	return &ledger{
		lock:     &sync.RWMutex{},
		balances: make(map[common.Address]uint64),
	}
}

func (l *ledger) Balance(_ context.Context, addr common.Address) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return l.balances[addr], nil
}

func (l *ledger) Credit(_ context.Context, addr common.Address, amount uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	balance := l.balances[addr]
	if balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: balance of %s would overflow", ports.ErrInvalidTransfer, addr)
	}
	l.balances[addr] = balance + amount
	return nil
}

func (l *ledger) Transfer(_ context.Context, transfers ...ports.Transfer) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	// Stage the touched balances and swap them in only if every transfer
	// goes through.
	staged := make(map[common.Address]uint64)
	balanceOf := func(addr common.Address) uint64 {
		if b, ok := staged[addr]; ok {
			return b
		}
		return l.balances[addr]
	}

	for _, t := range transfers {
		if err := t.Validate(); err != nil {
			return err
		}
		from, to := balanceOf(t.From), balanceOf(t.To)
		if from < t.Amount {
			return fmt.Errorf(
				"%w: %s has %d, needs %d", ports.ErrInsufficientFunds, t.From, from, t.Amount,
			)
		}
		if to > math.MaxUint64-t.Amount {
			return fmt.Errorf("%w: balance of %s would overflow", ports.ErrInvalidTransfer, t.To)
		}
		staged[t.From] = from - t.Amount
		staged[t.To] = to + t.Amount
	}

	for addr, balance := range staged {
		l.balances[addr] = balance
	}
	return nil
}

func (l *ledger) Close() {}
