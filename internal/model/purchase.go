package model

import "time"

type Purchase struct {
	LessonID        string    `json:"lesson_id"`
	UserID          string    `json:"user_id"`
	Amount          float64   `json:"amount"`
	StripeSessionID string    `json:"stripe_session_id"`
	CreatedAt       time.Time `json:"created_at"`
}
