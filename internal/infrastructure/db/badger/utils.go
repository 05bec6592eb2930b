package badgerdb

import (
	"encoding/json"
	"fmt"

	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"
)

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

// runValueLogGC is a no-op for in-memory stores.
func runValueLogGC(store *badgerhold.Store) error {
	if store.Badger().Opts().InMemory {
		return nil
	}
	for {
		err := store.Badger().RunValueLogGC(0.5)
		if err == nil {
			continue
		}
		if err == badger.ErrNoRewrite {
			return nil
		}
		return err
	}
}

// roundEventsDTO is the stored form of a round's event log. Number is
// indexed so that the latest rounds can be found without the projection.
type roundEventsDTO struct {
	Id     string `badgerhold:"key"`
	Number uint64 `badgerhold:"index"`
	Events []eventDTO
}

// eventDTO tags each event with its type so that decoding never has to guess
// from the populated fields.
type eventDTO struct {
	Type domain.EventType
	Data json.RawMessage
}

func serializeEvents(id string, events []domain.RoundEvent) (*roundEventsDTO, error) {
	dtos := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dto, err := serializeEvent(event)
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *dto)
	}
	return &roundEventsDTO{
		Id:     id,
		Number: domain.NewRoundFromEvents(events).Number,
		Events: dtos,
	}, nil
}

func deserializeEvents(dtos []eventDTO) ([]domain.RoundEvent, error) {
	events := make([]domain.RoundEvent, 0, len(dtos))
	for _, dto := range dtos {
		event, err := deserializeEvent(dto)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func serializeEvent(event domain.RoundEvent) (*eventDTO, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &eventDTO{event.GetType(), data}, nil
}

func deserializeEvent(dto eventDTO) (domain.RoundEvent, error) {
	switch dto.Type {
	case domain.EventTypeRoundStarted:
		return decodeEvent[domain.RoundStarted](dto.Data)
	case domain.EventTypeDepositRegistered:
		return decodeEvent[domain.DepositRegistered](dto.Data)
	case domain.EventTypeLotteryFull:
		return decodeEvent[domain.LotteryFull](dto.Data)
	case domain.EventTypeWinnerSelected:
		return decodeEvent[domain.WinnerSelected](dto.Data)
	case domain.EventTypeRoundForceReset:
		return decodeEvent[domain.RoundForceReset](dto.Data)
	default:
		return nil, fmt.Errorf("unknown event type %d", dto.Type)
	}
}

func decodeEvent[T domain.RoundEvent](data []byte) (domain.RoundEvent, error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return event, nil
}
