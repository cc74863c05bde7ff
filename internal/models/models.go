// Package models holds the data shapes the core operates on. The server
// never interprets any of the opaque byte/string fields below; it stores and
// returns them verbatim.
package models

import "time"

// Phase is the derived registration/login phase of a User, or the single
// enumerated slot a PreAuthSession occupies.
type Phase string

const (
	PhaseVerifOTP      Phase = "verif_otp"
	PhaseVerifPassword Phase = "verif_password"
	PhaseReady         Phase = "ready"
	PhaseNone          Phase = ""
)

// User mirrors spec.md §3. EncryptedDEK/Nonce/Salt/KDFParams/AuthVerifier are
// all present or all absent together (invariant I1).
type User struct {
	ID              string
	Username        string
	Email           string
	IsEmailVerified bool
	EncryptedDEK    []byte
	Nonce           []byte
	Salt            []byte
	KDFParams       string
	AuthVerifier    []byte
	CreatedAt       time.Time
}

// HasIdentifier reports whether the five-field identifier bundle is present.
func (u User) HasIdentifier() bool {
	return u.AuthVerifier != nil
}

// Phase derives the registration phase per spec.md §3.
func (u User) Phase() Phase {
	if !u.IsEmailVerified {
		return PhaseVerifOTP
	}
	if !u.HasIdentifier() {
		return PhaseVerifPassword
	}
	return PhaseReady
}

// PublicUser is the subset of User safe to return to a client.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Identifier is the five-field bundle the client installs post email
// verification. JSON tag on KDFParams matches the wire name used by
// /auth/verif/identifier ("argon2_params") while the stored field keeps the
// storage-neutral name KDFParams.
type Identifier struct {
	EncryptedDEK []byte `json:"encrypted_dek"`
	Nonce        []byte `json:"nonce"`
	Salt         []byte `json:"salt"`
	KDFParams    string `json:"argon2_params"`
	AuthVerifier []byte `json:"auth_verifier"`
}

// OtpRecord is stored in the KV store, at most one per user.
type OtpRecord struct {
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshTokenRecord is the durable, rotating refresh-token row. At most one
// per user; rotation updates it in place.
type RefreshTokenRecord struct {
	UserID      string
	Token       string
	TokenFamily string
	ExpiresAt   time.Time
	IsRevoked   bool
}

// PreAuthSession is the server-side handle carrying a user through
// registration before an access token exists.
type PreAuthSession struct {
	Handle    string
	Phase     Phase
	UserID    string
	UpdatedAt time.Time
}

// VaultItemType enumerates the four supported vault item kinds.
type VaultItemType string

const (
	ItemTypePassword   VaultItemType = "Password"
	ItemTypeCreditCard VaultItemType = "CreditCard"
	ItemTypeNote       VaultItemType = "Note"
	ItemTypeContact    VaultItemType = "Contact"
)

// VaultItem is an opaque encrypted record owned by exactly one user.
type VaultItem struct {
	ID            string
	OwnerID       string
	Title         string
	ItemType      VaultItemType
	EncryptedData []byte
	Nonce         []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TokenPair is what Login/InstallIdentifier/RefreshTokens return.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
