package ports

import "context"

// EntropyProvider supplies the block-level entropy mixed into the winner
// seed at settlement time.
type EntropyProvider interface {
	BlockEntropy(ctx context.Context) ([32]byte, error)
}
