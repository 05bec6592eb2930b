package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ark-network/lottery/internal/core/domain"
	"github.com/ethereum/go-ethereum/common"
)

const (
	upsertRound = `
INSERT INTO round (
    id, number, stage, entry_value, initializer, finalizer, reset_by, winner,
    pool_balance, starting_timestamp, ending_timestamp, settlement, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    stage = EXCLUDED.stage,
    finalizer = EXCLUDED.finalizer,
    reset_by = EXCLUDED.reset_by,
    winner = EXCLUDED.winner,
    pool_balance = EXCLUDED.pool_balance,
    ending_timestamp = EXCLUDED.ending_timestamp,
    settlement = EXCLUDED.settlement,
    version = EXCLUDED.version
WHERE EXCLUDED.version >= round.version`

	upsertParticipant = `
INSERT INTO participant (round_id, position, address) VALUES (?, ?, ?)
ON CONFLICT(round_id, position) DO NOTHING`

	selectRound = `
SELECT id, number, stage, entry_value, initializer, finalizer, reset_by, winner,
    pool_balance, starting_timestamp, ending_timestamp, settlement, version
FROM round`

	selectParticipants = `
SELECT address FROM participant WHERE round_id = ? ORDER BY position`
)

type roundRepository struct {
	db *sql.DB
}

func NewRoundRepository(config ...interface{}) (domain.RoundRepository, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	db, ok := config[0].(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("cannot open round repository: invalid config, expected db at 0")
	}

	return &roundRepository{db}, nil
}

func (r *roundRepository) Close() {
	_ = r.db.Close()
}

func (r *roundRepository) AddOrUpdateRound(ctx context.Context, round domain.Round) error {
	var settlement string
	if round.IsSettled() {
		buf, err := json.Marshal(round.Settlement)
		if err != nil {
			return fmt.Errorf("failed to encode settlement: %w", err)
		}
		settlement = string(buf)
	}

	txBody := func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx, upsertRound,
			round.Id,
			int64(round.Number),
			int64(round.Stage),
			int64(round.EntryValue),
			encodeAddress(round.Initializer),
			encodeAddress(round.Finalizer),
			encodeAddress(round.ResetBy),
			encodeAddress(round.Winner),
			int64(round.PoolBalance),
			round.StartingTimestamp,
			round.EndingTimestamp,
			settlement,
			int64(round.Version),
		); err != nil {
			return fmt.Errorf("failed to upsert round: %w", err)
		}

		for pos, addr := range round.Participants.Addresses {
			if _, err := tx.ExecContext(
				ctx, upsertParticipant, round.Id, pos, addr.Hex(),
			); err != nil {
				return fmt.Errorf("failed to upsert participant: %w", err)
			}
		}
		return nil
	}

	return execTx(ctx, r.db, txBody)
}

func (r *roundRepository) GetRoundWithId(ctx context.Context, id string) (*domain.Round, error) {
	rounds, err := r.findRounds(ctx, selectRound+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rounds) <= 0 {
		return nil, fmt.Errorf("round with id %s not found", id)
	}
	return &rounds[0], nil
}

func (r *roundRepository) GetRoundWithNumber(
	ctx context.Context, number uint64,
) (*domain.Round, error) {
	rounds, err := r.findRounds(ctx, selectRound+" WHERE number = ?", int64(number))
	if err != nil {
		return nil, err
	}
	if len(rounds) <= 0 {
		return nil, fmt.Errorf("round %d not found", number)
	}
	return &rounds[0], nil
}

func (r *roundRepository) GetLatestRounds(
	ctx context.Context, limit int,
) ([]domain.Round, error) {
	if limit <= 0 {
		return r.findRounds(ctx, selectRound+" ORDER BY number DESC")
	}
	return r.findRounds(ctx, selectRound+" ORDER BY number DESC LIMIT ?", limit)
}

func (r *roundRepository) findRounds(
	ctx context.Context, query string, args ...interface{},
) ([]domain.Round, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	rounds := make([]domain.Round, 0)
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		rounds = append(rounds, *round)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Participants are read once the rounds cursor is closed, the db only
	// allows one connection.
	for i := range rounds {
		participants, err := r.getParticipants(ctx, rounds[i].Id)
		if err != nil {
			return nil, err
		}
		rounds[i].Participants = domain.NewParticipants(participants...)
	}
	return rounds, nil
}

func (r *roundRepository) getParticipants(
	ctx context.Context, roundId string,
) ([]common.Address, error) {
	rows, err := r.db.QueryContext(ctx, selectParticipants, roundId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]common.Address, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		participants = append(participants, common.HexToAddress(addr))
	}
	return participants, rows.Err()
}

func scanRound(rows *sql.Rows) (*domain.Round, error) {
	var (
		round                                    domain.Round
		number, stage, entryValue, pool, version int64
		initializer, finalizer, resetBy, winner  string
		settlement                               string
	)
	if err := rows.Scan(
		&round.Id, &number, &stage, &entryValue,
		&initializer, &finalizer, &resetBy, &winner,
		&pool, &round.StartingTimestamp, &round.EndingTimestamp,
		&settlement, &version,
	); err != nil {
		return nil, err
	}

	round.Number = uint64(number)
	round.Stage = domain.RoundStage(stage)
	round.EntryValue = uint64(entryValue)
	round.Initializer = decodeAddress(initializer)
	round.Finalizer = decodeAddress(finalizer)
	round.ResetBy = decodeAddress(resetBy)
	round.Winner = decodeAddress(winner)
	round.PoolBalance = uint64(pool)
	round.Version = uint(version)

	if len(settlement) > 0 {
		if err := json.Unmarshal([]byte(settlement), &round.Settlement); err != nil {
			return nil, fmt.Errorf("failed to decode settlement of round %s: %w", round.Id, err)
		}
	}
	return &round, nil
}

func encodeAddress(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}

func decodeAddress(s string) common.Address {
	if len(s) <= 0 {
		return common.Address{}
	}
	return common.HexToAddress(s)
}
