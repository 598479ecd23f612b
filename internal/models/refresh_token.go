package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is an issued refresh token. Only the SHA-256 of the token is
// stored so a leaked table cannot be replayed.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// HashToken returns the lookup key stored for a raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewRefreshToken prepares a row for a freshly signed token.
func NewRefreshToken(userID, raw string, expiresAt time.Time) *RefreshToken {
	return &RefreshToken{UserID: userID, TokenHash: HashToken(raw), ExpiresAt: expiresAt}
}

// Active reports whether the token can still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
