package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "pvregress/snapshot/v1"
	DomainArtifact = "pvregress/artifact/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotID computes the content-addressed id of a field snapshot.
// Two snapshots with identical results and environment share an id no matter
// when or under which filename they were written.
func SnapshotID(snapshot IRObject) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("SnapshotID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// ArtifactID computes the content-addressed id of a serialized model artifact.
func ArtifactID(data []byte) string {
	return hashWithDomain(DomainArtifact, data)
}

// MustSnapshotID is like SnapshotID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotID(snapshot IRObject) string {
	id, err := SnapshotID(snapshot)
	if err != nil {
		panic(err)
	}
	return id
}
