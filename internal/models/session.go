package models

// SessionRecord is a persisted server-side session. Data holds the
// signed, encoded session values; ExpiresAt is a unix timestamp.
type SessionRecord struct {
	ID        string `db:"id"`
	Data      string `db:"data"`
	ExpiresAt int64  `db:"expires_at"`
}
