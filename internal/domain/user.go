package domain

import (
	"time"
)

// User is a listener known to the service. ID is the identity provider's subject.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"fullName"`
	AvatarURL   string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
