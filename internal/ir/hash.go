package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenesisHash is the chain tip before any transaction has committed.
var GenesisHash = strings.Repeat("0", 64)

// merkleSeparator joins the hashed fields. The fields themselves are hex
// digests, identifiers and canonical JSON, so the layout is unambiguous.
const merkleSeparator = "|"

// MerkleRoot computes the provenance digest of a transaction:
//
//	hex(SHA256(prev_hash | tx_id | verb | canonical(params) | canonical(delta)))
//
// Identical inputs always yield the identical digest, which lets any party
// re-verify the chain from the receipt log alone.
func MerkleRoot(prevHash, txID string, verb Verb, params VerbConfig, delta Delta) (string, error) {
	paramsJSON, err := MarshalCanonical(params.Canonical())
	if err != nil {
		return "", fmt.Errorf("MerkleRoot: marshal params: %w", err)
	}
	deltaJSON, err := MarshalCanonical(delta.Canonical())
	if err != nil {
		return "", fmt.Errorf("MerkleRoot: marshal delta: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write([]byte(merkleSeparator))
	h.Write([]byte(txID))
	h.Write([]byte(merkleSeparator))
	h.Write([]byte(verb))
	h.Write([]byte(merkleSeparator))
	h.Write(paramsJSON)
	h.Write([]byte(merkleSeparator))
	h.Write(deltaJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustMerkleRoot is like MerkleRoot but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMerkleRoot(prevHash, txID string, verb Verb, params VerbConfig, delta Delta) string {
	root, err := MerkleRoot(prevHash, txID, verb, params, delta)
	if err != nil {
		panic(err)
	}
	return root
}
