package ports

import "github.com/ark-network/lottery/internal/core/domain"

type RepoManager interface {
	Events() domain.RoundEventRepository
	Rounds() domain.RoundRepository
	RegisterEventsHandler(func(round *domain.Round))
	// GarbageCollect reclaims space of the underlying stores, if they need it.
	GarbageCollect()
	Close()
}
