package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashing. The version suffix enables future
// algorithm migration without colliding with existing hashes.
const (
	DomainBinding = "plantadvisor/binding/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BindingHash computes a stable hash over a binding set.
// The agenda uses (ruleID, BindingHash) as the identity of an activation:
// the same rule matched with the same bindings is the same activation,
// and is never inserted twice.
func BindingHash(bindings Bindings) (string, error) {
	if bindings == nil {
		bindings = Bindings{}
	}
	canonical, err := MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// MustBindingHash is like BindingHash but panics on error.
// Use only in tests or when bindings are known to be hashable.
func MustBindingHash(bindings Bindings) string {
	hash, err := BindingHash(bindings)
	if err != nil {
		panic(err)
	}
	return hash
}
