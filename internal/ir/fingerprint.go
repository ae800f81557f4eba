package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEntity separates entity fingerprints from any other hash computed
// over the same bytes. The version suffix allows a future algorithm change
// to be told apart from content churn.
const DomainEntity = "sorsync/entity/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content hash of a normalized entity's attributes.
// Identical content always yields the identical string; any change to an
// attribute value, key or list order yields a different one.
func Fingerprint(attrs Object) (string, error) {
	canonical, err := MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainEntity, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when attrs are known to be valid.
func MustFingerprint(attrs Object) string {
	fp, err := Fingerprint(attrs)
	if err != nil {
		panic(err)
	}
	return fp
}
