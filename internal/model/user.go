package model

// User owns a stream of sensor readings. The password hash never leaves the
// server.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FullName     string `json:"fullName"`
}
