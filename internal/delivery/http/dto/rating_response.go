package dto

import "github.com/google/uuid"

type RatingResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Reputation   float64   `json:"reputation"`
	RatingsCount int       `json:"ratings_count"`
}
