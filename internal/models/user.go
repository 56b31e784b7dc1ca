package models

// User is a dashboard login account. PasswordHash holds a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Name         string `db:"name" json:"name,omitempty"`
	PasswordHash string `db:"password_hash" json:"-"`
}
