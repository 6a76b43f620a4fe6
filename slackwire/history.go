package slackwire

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/vovakirdan/slackwire-go/slackwire/api"
)

// maxHistoryCount is the largest count sent; the field is four digits wide.
const maxHistoryCount = 9999

// HistoryRequest is one history call.
type HistoryRequest struct {
	ID     ulid.ULID
	Target ConversationRef
	Since  string // oldest timestamp, "" for the beginning
	Count  uint
}

type historyResponse struct {
	Messages []WireMessage `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// historyCall picks the Web API method for a conversation.
// ok is false for conversations that have no history call.
func historyCall(target ConversationRef) (method, id string, ok bool) {
	switch t := target.(type) {
	case ChannelTarget:
		switch t.Channel.Type {
		case ChannelMember:
			method = "channels.history"
		case ChannelGroup:
			method = "groups.history"
		case ChannelMPIM:
			method = "mpim.history"
		default:
			return "", "", false
		}
		return method, t.Channel.ID, true
	case IMTarget:
		if t.User.IM == "" {
			return "", "", false
		}
		return "im.history", t.User.IM, true
	}
	return "", "", false
}

func formatCount(count uint) string {
	if count > maxHistoryCount {
		count = maxHistoryCount
	}
	return strconv.FormatUint(uint64(count), 10)
}

// FetchHistory loads up to count messages newer than since and replays them
// to the UI oldest first. Conversations without a history call return nil
// without calling out. A failed call replays nothing and returns ErrorFetch.
func (r *Router) FetchHistory(ctx context.Context, target ConversationRef, since string, count uint) error {
	method, id, ok := historyCall(target)
	if !ok {
		r.metrics.historyFetched("skipped")
		return nil
	}
	req := HistoryRequest{ID: ulid.Make(), Target: target, Since: since, Count: count}
	oldest := req.Since
	if oldest == "" {
		oldest = "0"
	}
	return r.replay(ctx, req, method, api.Params{
		{Key: "channel", Value: id},
		{Key: "oldest", Value: oldest},
		{Key: "count", Value: formatCount(req.Count)},
	}, true, false)
}

// FetchReplies loads the thread started by the message at threadTS and
// replays it oldest first. Thread markers are shown whatever DisplayThreads
// says.
func (r *Router) FetchReplies(ctx context.Context, target ConversationRef, threadTS string) error {
	if target == nil || target.ID() == "" {
		return NewError(ErrorUnroutable, "conversation has no channel id")
	}
	if threadTS == "" {
		return NewError(ErrorUnroutable, "no thread timestamp")
	}
	req := HistoryRequest{ID: ulid.Make(), Target: target, Since: threadTS}
	return r.replay(ctx, req, "conversations.replies", api.Params{
		{Key: "channel", Value: target.ID()},
		{Key: "ts", Value: threadTS},
	}, false, true)
}

// replay calls method and delivers the returned messages to req.Target.
// newestFirst tells the order the call returns them in.
func (r *Router) replay(ctx context.Context, req HistoryRequest, method string, params api.Params, newestFirst, forceThreads bool) error {
	if r.api == nil {
		return NewError(ErrorNotConnected, "no api caller")
	}
	fields := map[string]any{"request": req.ID.String(), "method": method, "channel": req.Target.ID()}
	r.logger.Debug("history request", fields)

	raw, err := r.api.Call(ctx, method, params)
	if err != nil {
		return r.historyFailed(fields, err.Error(), err)
	}
	var resp historyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return r.historyFailed(fields, err.Error(), err)
	}
	if resp.Messages == nil {
		return r.historyFailed(fields, "missing", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Entries carry no channel field, so they go straight to the target.
	n := len(resp.Messages)
	for i := 0; i < n; i++ {
		msg := resp.Messages[i]
		if newestFirst {
			msg = resp.Messages[n-1-i]
		}
		if msg.Type != eventMessage {
			continue
		}
		_ = r.deliver(req.Target, msg, FlagDelayed, forceThreads)
	}
	r.metrics.historyFetched("ok")
	fields["messages"] = n
	fields["has_more"] = resp.HasMore
	r.logger.Debug("history loaded", fields)
	return nil
}

func (r *Router) historyFailed(fields map[string]any, reason string, err error) error {
	r.metrics.historyFetched("error")
	fields["error"] = reason
	r.logger.Error("error loading channel history", fields)
	if err == nil {
		return NewError(ErrorFetch, reason)
	}
	return WrapError(ErrorFetch, reason, err)
}

// RequestHistory runs FetchHistory in the background under the configured
// request timeout. The returned channel yields its result once; failures are
// also logged, so callers may ignore it.
func (r *Router) RequestHistory(target ConversationRef, since string, count uint) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx := context.Background()
		if r.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
			defer cancel()
		}
		done <- r.FetchHistory(ctx, target, since, count)
	}()
	return done
}

// ThreadTimestamp finds the wire timestamp of the message in target posted
// at when, as typed by a user in the form FormatThreadTimestamp prints. A
// raw wire timestamp is returned unchanged.
func (r *Router) ThreadTimestamp(ctx context.Context, target ConversationRef, when string) (string, error) {
	if isWireTimestamp(when) {
		return when, nil
	}
	at, ok := ParseThreadTime(when, r.now())
	if !ok {
		return "", NewError(ErrorUnroutable, "bad thread time "+strconv.Quote(when))
	}
	method, id, ok := historyCall(target)
	if !ok {
		return "", NewError(ErrorUnroutable, "conversation has no history")
	}
	if r.api == nil {
		return "", NewError(ErrorNotConnected, "no api caller")
	}
	sec := at.Unix()
	raw, err := r.api.Call(ctx, method, api.Params{
		{Key: "channel", Value: id},
		{Key: "oldest", Value: strconv.FormatInt(sec, 10)},
		{Key: "latest", Value: strconv.FormatInt(sec+1, 10)},
		{Key: "inclusive", Value: "1"},
		{Key: "count", Value: "1"},
	})
	if err != nil {
		return "", WrapError(ErrorFetch, err.Error(), err)
	}
	var resp historyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", WrapError(ErrorFetch, err.Error(), err)
	}
	for _, msg := range resp.Messages {
		if msg.TS != "" {
			return msg.TS, nil
		}
	}
	return "", NewError(ErrorFetch, "no message at "+when)
}

// PostToThread replies in the thread of the message posted at when (see
// ThreadTimestamp).
func (r *Router) PostToThread(ctx context.Context, target ConversationRef, when, markup string) error {
	ts, err := r.ThreadTimestamp(ctx, target, when)
	if err != nil {
		return err
	}
	return r.SendThreadReply(ctx, target, ts, markup)
}
