package model

import "time"

type Lesson struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	CreatorID    string    `json:"creator_id"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Categories   []string  `json:"categories"`
	CreatedAt    time.Time `json:"created_at"`
}
