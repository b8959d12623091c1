package models

import "time"

// Subscriber is a newsletter subscriber
type Subscriber struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
