package domain

import (
	"context"
	"time"
)

// User represents a registered account with Telegram API credentials.
// APIHashEncrypted and SessionEncrypted are AES-GCM ciphertexts; the plaintext
// never touches the store.
type User struct {
	ID               string    `json:"user_id" bson:"user_id"`
	Phone            string    `json:"phone" bson:"phone"`
	APIID            int       `json:"api_id" bson:"api_id"`
	APIHashEncrypted string    `json:"-" bson:"api_hash"`
	SessionEncrypted string    `json:"-" bson:"session_string"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// UserCreate represents the payload that starts an OTP login flow
type UserCreate struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Phone  string `json:"phone" validate:"required,e164"`
}

// UserVerify represents the payload that completes an OTP login flow
type UserVerify struct {
	UserID  string `json:"user_id" validate:"required,max=128"`
	OTPCode string `json:"otp_code" validate:"required,min=4,max=10"`
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
}
