package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// The version suffix leaves room for algorithm migration.
const (
	DomainAction = "entcache/action/v1"
	DomainRecord = "entcache/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionDigest computes the content digest of a logged action from its
// type, sequence number and canonical payload bytes. The action log stores
// it so replay can detect tampered or truncated rows.
func ActionDigest(actionType string, seq int64, payload []byte) string {
	obj := Object{
		"type":    String(actionType),
		"seq":     Int(seq),
		"payload": String(payload),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		// Only strings and ints are involved; marshaling cannot fail.
		panic(fmt.Sprintf("ActionDigest: %v", err))
	}
	return hashWithDomain(DomainAction, canonical)
}

// RecordDigest computes the content digest of an entity record.
func RecordDigest(rec Object) (string, error) {
	canonical, err := MarshalCanonical(rec)
	if err != nil {
		return "", fmt.Errorf("RecordDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}
