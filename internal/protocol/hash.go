package protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainTrace prefixes trace digests. The version suffix allows the
// encoding to change without colliding with old digests.
const DomainTrace = "mergeviz/trace/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TraceDigest identifies an operation trace by content.
// Two runs over the same input produce the same digest regardless of how
// long their pacing delays took.
func TraceDigest(ops []Operation) (string, error) {
	data, err := MarshalTrace(ops)
	if err != nil {
		return "", fmt.Errorf("TraceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, data), nil
}

// MustTraceDigest is like TraceDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTraceDigest(ops []Operation) string {
	d, err := TraceDigest(ops)
	if err != nil {
		panic(err)
	}
	return d
}
