package badgerledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/ark-network/lottery/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/ethereum/go-ethereum/common"
	"github.com/timshannon/badgerhold/v4"
)

const (
	ledgerStoreDir = "ledger"
	maxTxRetries   = 3
)

type account struct {
	Address string
	Balance uint64
}

type ledger struct {
	store *badgerhold.Store
	// lock keeps batches from conflicting with each other; badger would
	// otherwise reject the later commit.
	lock *sync.Mutex
}

func NewLedger(config ...interface{}) (ports.Ledger, error) {
	if len(config) != 2 {
		return nil, fmt.Errorf("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return nil, fmt.Errorf("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return nil, fmt.Errorf("invalid logger")
		}
	}

	opts := badger.DefaultOptions("")
	if len(baseDir) > 0 {
		opts = badger.DefaultOptions(filepath.Join(baseDir, ledgerStoreDir))
		opts.Compression = options.ZSTD
	} else {
		opts.InMemory = true
	}
	opts.Logger = logger

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %s", err)
	}

	return &ledger{store, &sync.Mutex{}}, nil
}

func (l *ledger) Balance(_ context.Context, addr common.Address) (uint64, error) {
	var acc account
	if err := l.store.Get(addr.Hex(), &acc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance of %s: %w", addr, err)
	}
	return acc.Balance, nil
}

func (l *ledger) Credit(_ context.Context, addr common.Address, amount uint64) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.update(func(tx *badger.Txn) error {
		acc, err := l.getAccount(tx, addr)
		if err != nil {
			return err
		}
		if acc.Balance > math.MaxUint64-amount {
			return fmt.Errorf("%w: balance of %s would overflow", ports.ErrInvalidTransfer, addr)
		}
		acc.Balance += amount
		return l.store.TxUpsert(tx, acc.Address, acc)
	})
}

func (l *ledger) Transfer(_ context.Context, transfers ...ports.Transfer) error {
	for _, t := range transfers {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	return l.update(func(tx *badger.Txn) error {
		accounts := make(map[common.Address]*account)
		get := func(addr common.Address) (*account, error) {
			if acc, ok := accounts[addr]; ok {
				return acc, nil
			}
			acc, err := l.getAccount(tx, addr)
			if err != nil {
				return nil, err
			}
			accounts[addr] = acc
			return acc, nil
		}

		for _, t := range transfers {
			from, err := get(t.From)
			if err != nil {
				return err
			}
			to, err := get(t.To)
			if err != nil {
				return err
			}
			if from.Balance < t.Amount {
				return fmt.Errorf(
					"%w: %s has %d, needs %d",
					ports.ErrInsufficientFunds, t.From, from.Balance, t.Amount,
				)
			}
			if to.Balance > math.MaxUint64-t.Amount {
				return fmt.Errorf("%w: balance of %s would overflow", ports.ErrInvalidTransfer, t.To)
			}
			from.Balance -= t.Amount
			to.Balance += t.Amount
		}

		for _, acc := range accounts {
			if err := l.store.TxUpsert(tx, acc.Address, *acc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *ledger) Close() {
	l.store.Close()
}

func (l *ledger) getAccount(tx *badger.Txn, addr common.Address) (*account, error) {
	acc := account{}
	if err := l.store.TxGet(tx, addr.Hex(), &acc); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("failed to get balance of %s: %w", addr, err)
		}
		acc = account{Address: addr.Hex()}
	}
	return &acc, nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (l *ledger) update(fn func(tx *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = l.store.Badger().Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
