package assets

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MerkleLeaf is one airdrop allocation in base units.
type MerkleLeaf struct {
	Index   uint64
	Account common.Address
	Amount  *big.Int
}

// Hash is keccak256(keccak256(abi.encode(index, account, amount))).
func (l MerkleLeaf) Hash() common.Hash {
	enc := make([]byte, 0, 96)
	enc = append(enc, common.LeftPadBytes(new(big.Int).SetUint64(l.Index).Bytes(), 32)...)
	enc = append(enc, common.LeftPadBytes(l.Account.Bytes(), 32)...)
	enc = append(enc, common.LeftPadBytes(l.Amount.Bytes(), 32)...)
	return crypto.Keccak256Hash(crypto.Keccak256(enc))
}

// MerkleTree is a sorted-pair keccak tree over airdrop leaves, matching
// the proofs the airdrop contracts verify.
type MerkleTree struct {
	layers [][]common.Hash
	index  map[common.Hash]int // leaf hash -> position in layer 0
}

// NewMerkleTree builds a tree. Leaves are ordered by hash.
func NewMerkleTree(leaves []MerkleLeaf) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("merkle tree needs at least one leaf")
	}
	hashes := make([]common.Hash, len(leaves))
	for i, l := range leaves {
		if l.Amount == nil || l.Amount.Sign() < 0 {
			return nil, errors.New("merkle leaf amount must be non-negative")
		}
		hashes[i] = l.Hash()
	}
	sort.Slice(hashes, func(i, j int) bool { return bytes.Compare(hashes[i][:], hashes[j][:]) < 0 })

	t := &MerkleTree{index: make(map[common.Hash]int, len(hashes))}
	for i, h := range hashes {
		if _, dup := t.index[h]; dup {
			return nil, errors.New("duplicate merkle leaf")
		}
		t.index[h] = i
	}

	layer := hashes
	t.layers = append(t.layers, layer)
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	return t, nil
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Root returns the tree root.
func (t *MerkleTree) Root() common.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Proof returns the sibling path of leaf, or false if it is not in the tree.
func (t *MerkleTree) Proof(leaf MerkleLeaf) ([]common.Hash, bool) {
	pos, ok := t.index[leaf.Hash()]
	if !ok {
		return nil, false
	}
	var proof []common.Hash
	for _, layer := range t.layers[:len(t.layers)-1] {
		sib := pos ^ 1
		if sib < len(layer) {
			proof = append(proof, layer[sib])
		}
		pos /= 2
	}
	return proof, true
}

// VerifyProof checks that proof links leaf to root.
func VerifyProof(root common.Hash, leaf MerkleLeaf, proof []common.Hash) bool {
	h := leaf.Hash()
	for _, p := range proof {
		h = hashPair(h, p)
	}
	return h == root
}
