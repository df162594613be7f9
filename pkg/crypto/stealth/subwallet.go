package stealth

import "github.com/Klingon-tech/klingnet-chain/pkg/crypto"

// Subwallet derives the secret spend key for sub-account index from the
// base spend secret via iterated, salted key-stretching: each round folds
// the index into the hash so that two different indices never collide in
// intermediate state. Index 0 is the base account and returns baseSecret
// unmodified.
func Subwallet(baseSecret crypto.Scalar, index uint64) crypto.Scalar {
	if index == 0 {
		return baseSecret
	}
	acc := baseSecret
	idxBytes := encodeVarint(index)
	for round := uint64(0); round < index; round++ {
		acc = crypto.DomainHashToScalar("subwallet", acc.Bytes(), idxBytes, encodeVarint(round))
	}
	return acc
}

// ViewFromSpend deterministically derives a view secret key from a spend
// secret key, so a wallet can be reconstructed from the spend key alone.
func ViewFromSpend(spendSecret crypto.Scalar) crypto.Scalar {
	return crypto.DomainHashToScalar("view-from-spend", spendSecret.Bytes())
}
