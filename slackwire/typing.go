package slackwire

import (
	"context"
	"time"
)

// TypingInterval is how long a typing notification stays asserted.
const TypingInterval = 3 * time.Second

// RouteOutcome tells where a typing event went.
type RouteOutcome int

const (
	RouteUnresolved RouteOutcome = iota
	RouteIM
	RouteChannel
)

// String returns the string representation of a RouteOutcome.
func (o RouteOutcome) String() string {
	switch o {
	case RouteIM:
		return "im"
	case RouteChannel:
		return "channel"
	default:
		return "unresolved"
	}
}

// TypingState is the local user's typing state.
type TypingState int

const (
	NotTyping TypingState = iota
	Typing
	Typed // stopped, text still pending
)

// HandleTyping relays a user_typing event. Typing in channels is not shown.
func (r *Router) HandleTyping(userID, channelID string) RouteOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := Resolve(r.dir, userID, channelID)
	if !ok {
		r.metrics.eventUnroutable()
		r.logger.Warn("unhandled typing", map[string]any{"user": userID, "channel": channelID})
		return RouteUnresolved
	}
	if t, ok := target.(IMTarget); ok {
		r.ui.Typing(t.User.Name, TypingInterval)
		return RouteIM
	}
	return RouteChannel
}

// SendTyping tells the peer named who that we are typing and returns the
// interval in seconds after which it should be repeated, or 0 when nothing
// was sent.
func (r *Router) SendTyping(ctx context.Context, who string, state TypingState) uint {
	if state != Typing {
		return 0
	}
	u, ok := r.dir.UserByName(who)
	if !ok || u.IM == "" {
		return 0
	}
	if r.rtm == nil {
		r.logger.Debug("typing not sent", map[string]any{"user": who, "reason": "no rtm sender"})
		return 0
	}
	if err := r.rtm.Send(ctx, outboundTyping, map[string]any{"channel": u.IM}); err != nil {
		r.logger.Debug("typing not sent", map[string]any{"user": who, "error": err.Error()})
		return 0
	}
	return uint(TypingInterval / time.Second)
}
