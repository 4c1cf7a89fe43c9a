package ws

import (
	"context"
	"encoding/json"
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/usecase"

	"github.com/google/uuid"
)

var _ usecase.MatchNotifier = (*MatchNotifier)(nil)

type MatchEvent struct {
	Type        string    `json:"type"`
	MatchID     uuid.UUID `json:"match_id"`
	UserA       uuid.UUID `json:"user_a"`
	UserB       uuid.UUID `json:"user_b"`
	InitiatorID uuid.UUID `json:"initiator_id"`
	Status      string    `json:"status"`
	Score       float64   `json:"compatibility_score"`
	Reason      string    `json:"reason,omitempty"`
	ExpiresAt   string    `json:"expires_at"`
	Timestamp   string    `json:"timestamp"`
}

// MatchNotifier pushes match lifecycle events to both participants.
type MatchNotifier struct {
	hub *Hub
	now func() time.Time
}

func NewMatchNotifier(hub *Hub) *MatchNotifier {
	return &MatchNotifier{hub: hub, now: time.Now}
}

func (n *MatchNotifier) MatchCreated(ctx context.Context, m match.Match) error {
	return n.push(ctx, usecase.EventMatchCreated, m)
}

func (n *MatchNotifier) MatchAccepted(ctx context.Context, m match.Match) error {
	return n.push(ctx, usecase.EventMatchAccepted, m)
}

func (n *MatchNotifier) MatchDeclined(ctx context.Context, m match.Match) error {
	return n.push(ctx, usecase.EventMatchDeclined, m)
}

func (n *MatchNotifier) push(ctx context.Context, eventType string, m match.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(MatchEvent{
		Type:        eventType,
		MatchID:     m.ID,
		UserA:       m.UserA,
		UserB:       m.UserB,
		InitiatorID: m.InitiatorID,
		Status:      string(m.Status),
		Score:       m.CompatibilityScore,
		Reason:      m.Reason,
		ExpiresAt:   m.ExpiresAt.UTC().Format(time.RFC3339),
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return n.hub.SendTo(b, m.UserA, m.UserB)
}
