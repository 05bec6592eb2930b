package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// WinnerSeed packs the settlement timestamp as uint256, the block entropy and
// the finalizer address, and hashes them with keccak256.
//
// Every input is public or influenceable by whoever produces the entropy, so
// the result is NOT secure against a block producer or a colluding entropy
// source. Inject a verifiable randomness provider where that matters.
func WinnerSeed(timestamp int64, entropy [32]byte, finalizer common.Address) []byte {
	ts := math.U256Bytes(big.NewInt(timestamp))
	return crypto.Keccak256(ts, entropy[:], finalizer.Bytes())
}

// WinnerIndex reduces seed modulo the number of participants.
func WinnerIndex(seed []byte, participants int) int {
	if participants <= 0 {
		return -1
	}
	n := new(big.Int).SetBytes(seed)
	return int(n.Mod(n, big.NewInt(int64(participants))).Int64())
}
