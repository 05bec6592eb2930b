package randomentropy

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/ark-network/lottery/internal/core/ports"
)

type provider struct{}

// NewProvider returns an entropy provider backed by the OS random source. It
// stands in for the block hash a chain would expose.
func NewProvider() ports.EntropyProvider {
	return provider{}
}

func (provider) BlockEntropy(ctx context.Context) ([32]byte, error) {
	var entropy [32]byte
	if err := ctx.Err(); err != nil {
		return entropy, err
	}
	if _, err := rand.Read(entropy[:]); err != nil {
		return entropy, fmt.Errorf("failed to read entropy: %w", err)
	}
	return entropy, nil
}
