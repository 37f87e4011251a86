package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Digest is a lowercase hex identity hash.
type Digest string

// String returns the hex form of the digest.
func (d Digest) String() string {
	return string(d)
}

// Algorithm selects the digest function used for identity hashes.
type Algorithm string

const (
	// AlgorithmSHA224 is the default.
	AlgorithmSHA224 Algorithm = "sha224"
	// AlgorithmBLAKE3 trades compatibility with older artifacts for speed.
	AlgorithmBLAKE3 Algorithm = "blake3"
)

// validAlgorithms maps accepted algorithm names.
var validAlgorithms = map[Algorithm]bool{
	AlgorithmSHA224: true,
	AlgorithmBLAKE3: true,
	"":              true, // empty defaults to sha224
}

// IsValidAlgorithm returns true if name is a recognized digest algorithm.
func IsValidAlgorithm(name string) bool {
	return validAlgorithms[Algorithm(name)]
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case AlgorithmSHA224, "":
		return sha256.New224(), nil
	case AlgorithmBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q; valid: sha224, blake3", string(a))
	}
}

// Hash computes the identity digest of d over its canonical text. Descriptors
// with the same program, arguments and options hash identically regardless of
// the order in which options were supplied.
func Hash(d *Descriptor, alg Algorithm) (Digest, error) {
	h, err := alg.newHash()
	if err != nil {
		return "", err
	}
	if _, err := h.Write([]byte(d.String())); err != nil {
		return "", fmt.Errorf("hashing descriptor: %w", err)
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}
