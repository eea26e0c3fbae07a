package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	DatasetHash Hash
	RuleSetHash Hash
)

// Constructors
func NewDatasetHash(data []byte) DatasetHash { return DatasetHash(NewHash(data)) }
func NewRuleSetHash(data []byte) RuleSetHash { return RuleSetHash(NewHash(data)) }

// String conversions
func (h DatasetHash) String() string { return Hash(h).String() }
func (h RuleSetHash) String() string { return Hash(h).String() }

// ComputeDatasetHash fingerprints a dataset from its header and row cells.
// Row order and column order are part of the fingerprint.
func ComputeDatasetHash(columns []string, rows [][]string) DatasetHash {
	var data strings.Builder
	data.WriteString(strings.Join(columns, "\x1f"))
	data.WriteString("\x1e")
	for _, row := range rows {
		data.WriteString(strings.Join(row, "\x1f"))
		data.WriteString("\x1e")
	}
	return NewDatasetHash([]byte(data.String()))
}

// ComputeRuleSetHash fingerprints an ordered rule table from its serialized rows.
func ComputeRuleSetHash(serialized []string) RuleSetHash {
	var data strings.Builder
	for _, s := range serialized {
		data.WriteString(s)
		data.WriteString("\x1e")
	}
	return NewRuleSetHash([]byte(data.String()))
}
