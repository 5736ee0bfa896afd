package project

import (
	"crypto/sha256"
	"fmt"
	"os"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// Combine builds a unit hash: H(content || dep1 || dep2 ...).
// deps must be in a deterministic order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashFile returns the digest of a file's contents.
func HashFile(path string) (Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return sha256.Sum256(data), nil
}

func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}
