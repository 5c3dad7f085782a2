package engine

import (
	"crypto/sha256"
	"encoding/binary"
)

// MaxProofLen bounds the number of sibling hashes accepted in a claim proof.
const MaxProofLen = 40

// leafDomainTag prefixes every claim leaf. Kept wire-compatible with the
// resolver's tree builder.
const leafDomainTag = "IC42N_V2"

// ClaimLeafHash rebuilds the Merkle leaf for a claim. The leaf commits to
// the round identity, the claim slot, the claimer, the amount, and the exact
// selection mask the claimer held for this chain. Field order and the
// little-endian integer encoding must match the resolver exactly.
func ClaimLeafHash(epoch uint64, tier uint8, index uint32, claimer string, amount uint64, selectionsMask uint16) [32]byte {
	h := sha256.New()
	h.Write([]byte(leafDomainTag))

	var u64 [8]byte
	var u32 [4]byte
	var u16 [2]byte

	binary.LittleEndian.PutUint64(u64[:], epoch)
	h.Write(u64[:])
	h.Write([]byte{tier})
	binary.LittleEndian.PutUint32(u32[:], index)
	h.Write(u32[:])
	h.Write([]byte(claimer))
	binary.LittleEndian.PutUint64(u64[:], amount)
	h.Write(u64[:])
	binary.LittleEndian.PutUint16(u16[:], selectionsMask)
	h.Write(u16[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyMerkleProof checks a SHA-256 Merkle path from leaf to root.
//
// Tree rule: parent = SHA256(left || right). At each level the sibling's
// side is determined by the current index's parity (even: computed first,
// odd: sibling first), and the index halves.
func VerifyMerkleProof(leaf [32]byte, proof [][32]byte, root [32]byte, index uint32) bool {
	computed := leaf

	for _, sibling := range proof {
		h := sha256.New()
		if index%2 == 0 {
			h.Write(computed[:])
			h.Write(sibling[:])
		} else {
			h.Write(sibling[:])
			h.Write(computed[:])
		}
		copy(computed[:], h.Sum(nil))
		index /= 2
	}

	return computed == root
}
