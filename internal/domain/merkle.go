package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// HashSize is the size of every commitment in the settlement core.
const HashSize = 32

type Hash [HashSize]byte

// ZeroHash is the root of the empty leaf sequence and the state-chain genesis.
var ZeroHash = Hash{}

func HashBytes(data []byte) Hash {
	return sha256.Sum256(data)
}

func HashFromHex(s string) (Hash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: malformed hash %q", ErrInvalidInput, s)
	}
	if len(raw) != HashSize {
		return Hash{}, fmt.Errorf("%w: hash must be %d bytes, got %d", ErrInvalidInput, HashSize, len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == ZeroHash }

// MerkleRoot accumulates ordered leaves by repeated pairwise hashing. An odd
// trailing leaf is carried up unchanged. Leaf order is commitment order, so
// the root is order-sensitive. The empty sequence maps to ZeroHash and a
// single leaf is returned as-is.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return ZeroHash
	}
	level := make([]Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0]
}

// VerifyMerklePath recomputes a root from a leaf and its sibling path.
// index is the leaf position within the committed batch.
func VerifyMerklePath(leaf Hash, index uint64, path []Hash, root Hash) bool {
	acc := leaf
	for _, sibling := range path {
		if index%2 == 0 {
			acc = hashPair(acc, sibling)
		} else {
			acc = hashPair(sibling, acc)
		}
		index /= 2
	}
	return acc == root
}

func hashPair(a, b Hash) Hash {
	buf := make([]byte, 0, 2*HashSize)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return HashBytes(buf)
}

// DisputeDataHash is the compact commitment stored in the pending queue and
// used as the merkle leaf for the dispute.
func DisputeDataHash(initiatorRef, counterpartyRef string, evidenceRoot Hash, stake int64) Hash {
	buf := make([]byte, 0, len(initiatorRef)+len(counterpartyRef)+HashSize+8)
	buf = append(buf, initiatorRef...)
	buf = append(buf, counterpartyRef...)
	buf = append(buf, evidenceRoot[:]...)
	var amount [8]byte
	binary.BigEndian.PutUint64(amount[:], uint64(stake))
	buf = append(buf, amount[:]...)
	return HashBytes(buf)
}
