package domain

import (
	"testing"
)

func leaf(b byte) Hash {
	return HashBytes([]byte{b})
}

func TestMerkleRootEmptyAndSingle(t *testing.T) {
	t.Parallel()

	if got := MerkleRoot(nil); got != ZeroHash {
		t.Fatalf("expected zero root for empty leaves, got %s", got.Hex())
	}
	single := leaf(1)
	if got := MerkleRoot([]Hash{single}); got != single {
		t.Fatalf("expected single leaf returned as root, got %s", got.Hex())
	}
}

func TestMerkleRootOddCarry(t *testing.T) {
	t.Parallel()

	a, b, c := leaf(1), leaf(2), leaf(3)
	// with three leaves the trailing leaf is carried up and paired at the top
	want := hashPair(hashPair(a, b), c)
	if got := MerkleRoot([]Hash{a, b, c}); got != want {
		t.Fatalf("odd carry root mismatch: got %s want %s", got.Hex(), want.Hex())
	}
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	t.Parallel()

	a, b := leaf(1), leaf(2)
	if MerkleRoot([]Hash{a, b}) == MerkleRoot([]Hash{b, a}) {
		t.Fatalf("expected root to depend on leaf order")
	}
}

func TestVerifyMerklePath(t *testing.T) {
	t.Parallel()

	leaves := []Hash{leaf(1), leaf(2), leaf(3), leaf(4)}
	root := MerkleRoot(leaves)

	// path for leaves[2]: sibling leaves[3], then the left subtree hash
	path := []Hash{leaves[3], hashPair(leaves[0], leaves[1])}
	if !VerifyMerklePath(leaves[2], 2, path, root) {
		t.Fatalf("expected valid inclusion path to verify")
	}
	if VerifyMerklePath(leaves[1], 2, path, root) {
		t.Fatalf("expected wrong leaf to fail verification")
	}
	if VerifyMerklePath(leaves[2], 3, path, root) {
		t.Fatalf("expected wrong index to fail verification")
	}
}

func TestHashFromHexRoundTrip(t *testing.T) {
	t.Parallel()

	h := HashBytes([]byte("settlement"))
	parsed, err := HashFromHex(h.Hex())
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if parsed != h {
		t.Fatalf("round trip mismatch")
	}
	if _, err := HashFromHex("zz"); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}

func TestDisputeDataHashDistinguishesFields(t *testing.T) {
	t.Parallel()

	base := DisputeDataHash("init-1", "counter-1", ZeroHash, 100)
	if DisputeDataHash("init-2", "counter-1", ZeroHash, 100) == base {
		t.Fatalf("expected initiator to affect data hash")
	}
	if DisputeDataHash("init-1", "counter-1", ZeroHash, 101) == base {
		t.Fatalf("expected stake to affect data hash")
	}
	if DisputeDataHash("init-1", "counter-1", ZeroHash, 100) != base {
		t.Fatalf("expected identical inputs to reproduce the hash")
	}
}
