package slackwire

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/slackwire-go/slackwire/api"
)

// ChatID is the UI's handle for an open channel conversation.
type ChatID int

// UI receives display events. Calls are never made concurrently by one Router.
//
// The Router holds its lock while it calls the UI, so UI methods must not
// call back into the Router synchronously. To load a backlog when a channel
// opens, call RequestHistory from OpenChannel; it replays once the current
// event has been delivered.
type UI interface {
	// ChannelHandle returns the handle of an already open channel conversation.
	ChannelHandle(ch Channel) (ChatID, bool)
	// OpenChannel opens a conversation for a channel that has no handle yet.
	OpenChannel(ch Channel) (ChatID, error)
	DirectMessage(ev DisplayEvent)
	ChannelMessage(id ChatID, ev DisplayEvent)
	SetTopic(id ChatID, who, topic string)
	Typing(who string, interval time.Duration)
}

// APICaller issues Web API calls. *api.Client implements it.
type APICaller interface {
	Call(ctx context.Context, method string, params api.Params) (json.RawMessage, error)
}

// RTMSender writes frames on the real-time connection. *Client implements it.
type RTMSender interface {
	Send(ctx context.Context, typ string, fields map[string]any) error
}

// Router turns wire events into display events for a UI.
type Router struct {
	cfg     Config
	dir     Directory
	ui      UI
	api     APICaller
	rtm     RTMSender
	logger  Logger
	metrics *Metrics
	now     func() time.Time

	mu sync.Mutex // serialises delivery to the UI
}

// NewRouter builds a router over a directory and a UI.
// Only the routing fields of cfg are used (Self, OpenChat, DisplayThreads,
// EscapeText, RequestTimeout).
func NewRouter(cfg Config, dir Directory, ui UI) *Router {
	return &Router{
		cfg:    cfg,
		dir:    dir,
		ui:     ui,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger overrides logger (optional).
func (r *Router) SetLogger(l Logger) {
	if l == nil {
		return
	}
	r.logger = l
}

// SetMetrics enables metrics (optional).
func (r *Router) SetMetrics(m *Metrics) { r.metrics = m }

// SetAPI sets the caller used for history and outgoing messages.
func (r *Router) SetAPI(c APICaller) { r.api = c }

// SetRTM sets the sender used for typing notifications.
func (r *Router) SetRTM(s RTMSender) { r.rtm = s }

// SetSelf records the account's own user id once it is known.
func (r *Router) SetSelf(id string) {
	r.mu.Lock()
	r.cfg.Self = id
	r.mu.Unlock()
}

func (r *Router) transcoder() Transcoder {
	return Transcoder{Lookup: r.dir, Self: r.cfg.Self, EscapeText: r.cfg.EscapeText}
}

// HandleMessage routes one live message to the UI.
// An unroutable message is logged and reported as ErrorUnroutable; a message
// for a closed channel with OpenChat off is dropped and returns nil.
func (r *Router) HandleMessage(msg WireMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatch(msg, 0)
}

func (r *Router) dispatch(msg WireMessage, extra Flags) error {
	target, ok := Resolve(r.dir, msg.User, msg.Channel)
	if !ok {
		markup, _ := r.render(msg, false)
		r.metrics.eventUnroutable()
		r.logger.Warn("unhandled message", map[string]any{
			"user":    msg.User,
			"channel": msg.Channel,
			"markup":  markup,
		})
		return NewError(ErrorUnroutable, fmt.Sprintf("message %s@%s", msg.User, msg.Channel))
	}
	return r.deliver(target, msg, extra, false)
}

// render transcodes the message and adds the thread marker, always when
// forceThreads is set and otherwise only with DisplayThreads.
func (r *Router) render(msg WireMessage, forceThreads bool) (string, Flags) {
	markup, flags := r.transcoder().RenderMessage(msg)
	if (forceThreads || r.cfg.DisplayThreads) && msg.IsThreadReply() {
		markup = withThreadPrefix(markup, threadPrefix(msg.ThreadTS, r.now()))
	}
	return markup, flags
}

// deliver hands a message to the UI for an already resolved target.
func (r *Router) deliver(target ConversationRef, msg WireMessage, extra Flags, forceThreads bool) error {
	markup, flags := r.render(msg, forceThreads)
	flags |= FlagReceived | extra
	if msg.Hidden {
		flags |= FlagInvisible
	}

	ev := DisplayEvent{
		Target: target,
		Sender: r.senderName(msg.User),
		Markup: markup,
		Flags:  flags,
		SentAt: ParseTimestamp(msg.TS),
	}

	switch t := target.(type) {
	case IMTarget:
		r.ui.DirectMessage(ev)
		r.metrics.messageDispatched("im")
	case ChannelTarget:
		id, open := r.ui.ChannelHandle(t.Channel)
		if !open {
			if !r.cfg.OpenChat {
				r.metrics.messageDropped()
				return nil
			}
			var err error
			if id, err = r.ui.OpenChannel(t.Channel); err != nil {
				r.logger.Warn("open channel failed", map[string]any{"channel": t.Channel.ID, "error": err.Error()})
				return WrapError(ErrorOpenChannel, t.Channel.ID, err)
			}
		}
		if msg.Subtype == SubtypeChannelTopic || msg.Subtype == SubtypeGroupTopic {
			r.ui.SetTopic(id, ev.Sender, msg.Topic)
		}
		r.ui.ChannelMessage(id, ev)
		r.metrics.messageDispatched("channel")
	}
	return nil
}

// senderName prefers the registry name, then the raw id (which may be empty).
func (r *Router) senderName(userID string) string {
	if u, ok := r.dir.User(userID); ok && u.Name != "" {
		return u.Name
	}
	return userID
}

// withThreadPrefix keeps a leading /me command in front.
func withThreadPrefix(markup, prefix string) string {
	if rest, ok := strings.CutPrefix(markup, meCommand); ok {
		return meCommand + prefix + rest
	}
	return prefix + markup
}

// SendMessage converts display markup to wire text and posts it to target.
// A leading "/me " sends an action message.
func (r *Router) SendMessage(ctx context.Context, target ConversationRef, markup string) error {
	return r.post(ctx, target, markup, "")
}

// SendThreadReply posts markup as a reply in the thread started by the
// message at threadTS, a wire timestamp.
func (r *Router) SendThreadReply(ctx context.Context, target ConversationRef, threadTS, markup string) error {
	if threadTS == "" {
		return NewError(ErrorUnroutable, "no thread timestamp")
	}
	return r.post(ctx, target, markup, threadTS)
}

// post sends one message. Thread replies always go through
// chat.postMessage, which is the only call that takes thread_ts.
func (r *Router) post(ctx context.Context, target ConversationRef, markup, threadTS string) error {
	if r.api == nil {
		return NewError(ErrorNotConnected, "no api caller")
	}
	if target == nil || target.ID() == "" {
		return NewError(ErrorUnroutable, "conversation has no channel id")
	}
	method := "chat.postMessage"
	params := api.Params{{Key: "channel", Value: target.ID()}}
	rest, action := strings.CutPrefix(markup, meCommand)
	switch {
	case action && threadTS == "":
		method = "chat.meMessage"
		params = append(params, api.Param{Key: "text", Value: ToWire(rest, r.dir)})
	case action:
		// Threads take no action messages; italics read the same.
		params = append(params, api.Param{Key: "text", Value: "_" + ToWire(rest, r.dir) + "_"})
	default:
		params = append(params, api.Param{Key: "text", Value: ToWire(markup, r.dir)})
	}
	if method == "chat.postMessage" {
		params = append(params, api.Param{Key: "as_user", Value: "true"})
	}
	if threadTS != "" {
		params = append(params, api.Param{Key: "thread_ts", Value: threadTS})
	}
	if _, err := r.api.Call(ctx, method, params); err != nil {
		return fromCallError(err)
	}
	return nil
}
