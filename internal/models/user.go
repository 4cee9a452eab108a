package models

// User represents a registered account.
type User struct {
	UserID   int64  `json:"user_id" db:"user_id"`
	Username string `json:"username" db:"username"`
	Password string `json:"-" db:"password"` // Salted hash, never the plaintext
}

// Credentials is the body accepted by register and login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
