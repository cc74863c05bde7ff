package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprinter produces a keyed digest of an opaque bearer token for
// at-rest storage, so a durable-store or KV read never discloses a usable
// token. Grounded on the teacher's golang.org/x/crypto dependency (used
// there for bcrypt password hashing, which spec.md forbids server-side);
// this repurposes the same import to a keyed MAC suited to opaque-verifier
// storage instead.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter derives a fixed 32-byte blake2b key from secret via
// SHA-256 first: blake2b.New256 rejects keys over 64 bytes, and JWT_SECRET
// is operator-supplied and may be longer than that.
func NewFingerprinter(secret string) Fingerprinter {
	sum := sha256.Sum256([]byte(secret))
	return Fingerprinter{key: sum[:]}
}

// Fingerprint returns a hex-encoded keyed BLAKE2b-256 digest of token.
// Deterministic: the same token always fingerprints to the same value, so
// it can still be used as an equality/lookup key.
func (f Fingerprinter) Fingerprint(token string) string {
	// key is always the fixed 32-byte digest from NewFingerprinter, which
	// blake2b.New256 always accepts, so this constructor never errors.
	h, err := blake2b.New256(f.key)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
