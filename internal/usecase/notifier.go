package usecase

import (
	"context"
	"time"

	"study-sync/internal/domain/match"
	"study-sync/internal/observability"

	"go.uber.org/zap"
)

const (
	EventMatchCreated  = "match_created"
	EventMatchAccepted = "match_accepted"
	EventMatchDeclined = "match_declined"

	notifyTimeout = 5 * time.Second
)

// MatchNotifier receives match lifecycle events after the state change is
// committed.
type MatchNotifier interface {
	MatchCreated(ctx context.Context, m match.Match) error
	MatchAccepted(ctx context.Context, m match.Match) error
	MatchDeclined(ctx context.Context, m match.Match) error
}

type NopNotifier struct{}

func (NopNotifier) MatchCreated(context.Context, match.Match) error  { return nil }
func (NopNotifier) MatchAccepted(context.Context, match.Match) error { return nil }
func (NopNotifier) MatchDeclined(context.Context, match.Match) error { return nil }

// dispatcher runs notifier calls in the background on a context detached from
// the request. Failures are logged and counted, never returned.
type dispatcher struct {
	notifier MatchNotifier
	logger   *zap.Logger
}

func newDispatcher(n MatchNotifier, logger *zap.Logger) dispatcher {
	if n == nil {
		n = NopNotifier{}
	}
	return dispatcher{notifier: n, logger: logger}
}

func (d dispatcher) dispatch(ctx context.Context, event string, m match.Match) {
	var send func(context.Context, match.Match) error
	switch event {
	case EventMatchCreated:
		send = d.notifier.MatchCreated
	case EventMatchAccepted:
		send = d.notifier.MatchAccepted
	case EventMatchDeclined:
		send = d.notifier.MatchDeclined
	default:
		return
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("match notifier panicked", zap.String("event", event), zap.Any("panic", r))
			}
		}()

		err := send(nctx, m)
		observability.RecordNotification(event, err)
		if err != nil {
			d.logger.Warn("match notification failed",
				zap.String("event", event),
				zap.Stringer("match_id", m.ID),
				zap.Error(err),
			)
		}
	}()
}
