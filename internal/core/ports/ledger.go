package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTransfer   = errors.New("invalid transfer")
)

type Transfer struct {
	From   common.Address
	To     common.Address
	Amount uint64
}

// Ledger is the monetary transfer primitive holding every account balance,
// the custody account of the lottery included.
type Ledger interface {
	Balance(ctx context.Context, addr common.Address) (uint64, error)
	// Credit mints amount to addr. Only meant for faucets and tests.
	Credit(ctx context.Context, addr common.Address, amount uint64) error
	// Transfer applies all the given transfers or none of them.
	Transfer(ctx context.Context, transfers ...Transfer) error
	Close()
}

func (t Transfer) Validate() error {
	if t.From == (common.Address{}) || t.To == (common.Address{}) {
		return fmt.Errorf("%w: missing account", ErrInvalidTransfer)
	}
	if t.From == t.To {
		return fmt.Errorf("%w: %s pays itself", ErrInvalidTransfer, t.From)
	}
	if t.Amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidTransfer)
	}
	return nil
}
