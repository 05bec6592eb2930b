package domain

import "context"

type RoundEventRepository interface {
	Save(ctx context.Context, id string, events ...RoundEvent) (*Round, error)
	Load(ctx context.Context, id string) (*Round, error)
	// LoadLatest returns at most limit rounds, highest number first.
	LoadLatest(ctx context.Context, limit int) ([]*Round, error)
	RegisterEventsHandler(func(*Round))
	Close()
}

type RoundRepository interface {
	AddOrUpdateRound(ctx context.Context, round Round) error
	GetRoundWithId(ctx context.Context, id string) (*Round, error)
	GetRoundWithNumber(ctx context.Context, number uint64) (*Round, error)
	// GetLatestRounds returns at most limit rounds, highest number first.
	GetLatestRounds(ctx context.Context, limit int) ([]Round, error)
	Close()
}
