package slackwire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vovakirdan/slackwire-go/slackwire/api"
)

type uiCall struct {
	kind   string // "im", "chat", "topic", "typing", "open"
	chat   ChatID
	who    string
	text   string
	ev     DisplayEvent
	period time.Duration
}

// fakeUI records every call. Channels listed in open already have a handle.
type fakeUI struct {
	open    map[string]ChatID
	openErr error
	calls   []uiCall
}

func newFakeUI() *fakeUI { return &fakeUI{open: map[string]ChatID{}} }

func (u *fakeUI) ChannelHandle(ch Channel) (ChatID, bool) {
	id, ok := u.open[ch.ID]
	return id, ok
}

func (u *fakeUI) OpenChannel(ch Channel) (ChatID, error) {
	if u.openErr != nil {
		return 0, u.openErr
	}
	id := ChatID(len(u.open) + 1)
	u.open[ch.ID] = id
	u.calls = append(u.calls, uiCall{kind: "open", chat: id, text: ch.ID})
	return id, nil
}

func (u *fakeUI) DirectMessage(ev DisplayEvent) {
	u.calls = append(u.calls, uiCall{kind: "im", who: ev.Sender, text: ev.Markup, ev: ev})
}

func (u *fakeUI) ChannelMessage(id ChatID, ev DisplayEvent) {
	u.calls = append(u.calls, uiCall{kind: "chat", chat: id, who: ev.Sender, text: ev.Markup, ev: ev})
}

func (u *fakeUI) SetTopic(id ChatID, who, topic string) {
	u.calls = append(u.calls, uiCall{kind: "topic", chat: id, who: who, text: topic})
}

func (u *fakeUI) Typing(who string, interval time.Duration) {
	u.calls = append(u.calls, uiCall{kind: "typing", who: who, period: interval})
}

// recordLogger keeps warnings for assertions.
type recordLogger struct {
	noopLogger
	warns  []string
	errors []string
}

func (l *recordLogger) Warn(msg string, fields map[string]any) {
	l.warns = append(l.warns, fmt.Sprintf("%s %v", msg, fields))
}

func (l *recordLogger) Error(msg string, fields map[string]any) {
	l.errors = append(l.errors, fmt.Sprintf("%s %v", msg, fields))
}

func newTestRouter(cfg Config) (*Router, *fakeUI, *Registry) {
	reg := testRegistry()
	ui := newFakeUI()
	cfg.Self = "U1"
	return NewRouter(cfg, reg, ui), ui, reg
}

func TestHandleMessageIM(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	err := r.HandleMessage(WireMessage{User: "U2", Channel: "D2", TS: "1355517523.000005", Text: "hi <@U1>"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(ui.calls) != 1 || ui.calls[0].kind != "im" {
		t.Fatalf("calls = %+v", ui.calls)
	}
	ev := ui.calls[0].ev
	if ev.Sender != "bob" || ev.Markup != "hi @me" {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.Flags.Has(FlagReceived|FlagNick|FlagNoLinkify) || ev.Flags.Has(FlagInvisible) {
		t.Fatalf("flags = %v", ev.Flags)
	}
	if want := time.Unix(1355517523, 5000); !ev.SentAt.Equal(want) {
		t.Fatalf("sent at = %v, want %v", ev.SentAt, want)
	}
	if _, ok := ev.Target.(IMTarget); !ok {
		t.Fatalf("target = %T", ev.Target)
	}
}

func TestHandleMessageHidden(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	if err := r.HandleMessage(WireMessage{User: "U2", Channel: "D2", Hidden: true, Text: ""}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if f := ui.calls[0].ev.Flags; !f.Has(FlagInvisible | FlagNoLinkify) {
		t.Fatalf("flags = %v", f)
	}
}

func TestHandleMessageIMPrecedence(t *testing.T) {
	r, ui, reg := newTestRouter(DefaultConfig())
	reg.AddChannel(Channel{ID: "D2", Name: "shadow", Type: ChannelMember})
	ui.open["D2"] = 7
	if err := r.HandleMessage(WireMessage{User: "U2", Channel: "D2", Text: "x"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if ui.calls[0].kind != "im" {
		t.Fatalf("IM id also registered as channel routed to %q", ui.calls[0].kind)
	}
}

func TestHandleMessageOpenChannel(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	ui.open["C123"] = 4
	if err := r.HandleMessage(WireMessage{User: "U2", Channel: "C123", Text: "<!here> lunch"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	c := ui.calls[0]
	if c.kind != "chat" || c.chat != 4 || c.who != "bob" || c.text != "@here lunch" {
		t.Fatalf("call = %+v", c)
	}
	if !c.ev.Flags.Has(FlagNotify) {
		t.Fatalf("flags = %v", c.ev.Flags)
	}
}

func TestHandleMessageClosedChannel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r, ui, _ := newTestRouter(DefaultConfig())
	r.SetMetrics(m)
	log := &recordLogger{}
	r.SetLogger(log)
	if err := r.HandleMessage(WireMessage{User: "U2", Channel: "C123", Text: "x"}); err != nil {
		t.Fatalf("closed channel drop returned %v", err)
	}
	if len(ui.calls) != 0 || len(log.warns) != 0 {
		t.Fatalf("dropped message produced calls=%+v warns=%v", ui.calls, log.warns)
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Fatalf("dropped = %v", got)
	}

	cfg := DefaultConfig()
	cfg.OpenChat = true
	r, ui, _ = newTestRouter(cfg)
	if err := r.HandleMessage(WireMessage{User: "U2", Channel: "C123", Text: "x"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(ui.calls) != 2 || ui.calls[0].kind != "open" || ui.calls[1].kind != "chat" || ui.calls[1].chat != ui.calls[0].chat {
		t.Fatalf("calls = %+v", ui.calls)
	}
}

func TestHandleMessageOpenFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenChat = true
	r, ui, _ := newTestRouter(cfg)
	ui.openErr = errors.New("no window")
	err := r.HandleMessage(WireMessage{User: "U2", Channel: "C123", Text: "x"})
	if !errors.Is(err, NewError(ErrorOpenChannel, "")) {
		t.Fatalf("err = %v", err)
	}
}

func TestHandleMessageTopic(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	ui.open["C123"] = 2
	msg := WireMessage{User: "U2", Channel: "C123", Subtype: SubtypeChannelTopic, Topic: "new topic", Text: "<@U2> set the channel topic: new topic"}
	if err := r.HandleMessage(msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(ui.calls) != 2 {
		t.Fatalf("calls = %+v", ui.calls)
	}
	topic, chat := ui.calls[0], ui.calls[1]
	if topic.kind != "topic" || topic.chat != 2 || topic.who != "bob" || topic.text != "new topic" {
		t.Fatalf("topic call = %+v", topic)
	}
	if !chat.ev.Flags.Has(FlagSystem) {
		t.Fatalf("topic message flags = %v", chat.ev.Flags)
	}

	// unknown sender falls back to the raw id
	msg.User, msg.Subtype = "U77", SubtypeGroupTopic
	ui.calls = nil
	_ = r.HandleMessage(msg)
	if ui.calls[0].who != "U77" || ui.calls[1].who != "U77" {
		t.Fatalf("calls = %+v", ui.calls)
	}
}

func TestHandleMessageNoUser(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	ui.open["C123"] = 1
	if err := r.HandleMessage(WireMessage{Channel: "C123", Subtype: "bot_message", Text: "beep"}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if c := ui.calls[0]; c.who != "" || !c.ev.Flags.Has(FlagSystem) {
		t.Fatalf("call = %+v", c)
	}
}

func TestHandleMessageUnroutable(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	log := &recordLogger{}
	r.SetLogger(log)
	err := r.HandleMessage(WireMessage{User: "U2", Channel: "C404", Text: "<#C123>"})
	if !errors.Is(err, NewError(ErrorUnroutable, "")) {
		t.Fatalf("err = %v", err)
	}
	if len(ui.calls) != 0 {
		t.Fatalf("calls = %+v", ui.calls)
	}
	if len(log.warns) != 1 || !strings.Contains(log.warns[0], "C404") || !strings.Contains(log.warns[0], "#general") {
		t.Fatalf("warns = %v", log.warns)
	}
}

func TestHandleMessageThreads(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisplayThreads = true
	r, ui, _ := newTestRouter(cfg)
	r.now = func() time.Time { return time.Unix(1355517600, 0).UTC() }
	_ = r.HandleMessage(WireMessage{User: "U2", Channel: "D2", TS: "1355517600.1", ThreadTS: "1355517523.000005", Text: "reply", Subtype: SubtypeMeMessage})
	_ = r.HandleMessage(WireMessage{User: "U2", Channel: "D2", TS: "1355517523.000005", ThreadTS: "1355517523.000005", Text: "parent"})
	if got := ui.calls[0].text; got != "/me [thread 20:38:43] reply" {
		t.Fatalf("reply markup = %q", got)
	}
	if got := ui.calls[1].text; got != "parent" {
		t.Fatalf("parent markup = %q", got)
	}
}

type fakeAPI struct {
	method string
	params api.Params
	reply  string
	err    error
}

func (f *fakeAPI) Call(_ context.Context, method string, params api.Params) (json.RawMessage, error) {
	f.method, f.params = method, params
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.reply), nil
}

func TestSendMessage(t *testing.T) {
	r, _, reg := newTestRouter(DefaultConfig())
	fa := &fakeAPI{reply: `{"ok":true}`}
	r.SetAPI(fa)
	bob, _ := reg.User("U2")

	if err := r.SendMessage(context.Background(), IMTarget{User: bob}, "hi #general &amp; <b>all</b>"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if fa.method != "chat.postMessage" {
		t.Fatalf("method = %s", fa.method)
	}
	want := api.Params{{Key: "channel", Value: "D2"}, {Key: "text", Value: "hi <#C123> &amp; *all*"}, {Key: "as_user", Value: "true"}}
	if fmt.Sprint(fa.params) != fmt.Sprint(want) {
		t.Fatalf("params = %v, want %v", fa.params, want)
	}

	ch, _ := reg.Channel("C123")
	if err := r.SendMessage(context.Background(), ChannelTarget{Channel: ch}, "/me waves"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if fa.method != "chat.meMessage" || fmt.Sprint(fa.params) != fmt.Sprint(api.Params{{Key: "channel", Value: "C123"}, {Key: "text", Value: "waves"}}) {
		t.Fatalf("me message = %s %v", fa.method, fa.params)
	}

	fa.err = &api.Error{Code: "not_in_channel"}
	err := r.SendMessage(context.Background(), ChannelTarget{Channel: ch}, "x")
	if !errors.Is(err, NewError(ErrorNotInChannel, "")) || !IsAPIError(err) {
		t.Fatalf("err = %v", err)
	}

	if err := r.SendMessage(context.Background(), IMTarget{User: User{ID: "U9"}}, "x"); !errors.Is(err, NewError(ErrorUnroutable, "")) {
		t.Fatalf("no IM id: err = %v", err)
	}
}

func TestSendThreadReply(t *testing.T) {
	r, _, reg := newTestRouter(DefaultConfig())
	fa := &fakeAPI{reply: `{"ok":true}`}
	r.SetAPI(fa)
	ch, _ := reg.Channel("C123")
	target := ChannelTarget{Channel: ch}

	if err := r.SendThreadReply(context.Background(), target, "1.000002", "hi @bob"); err != nil {
		t.Fatalf("SendThreadReply: %v", err)
	}
	want := api.Params{
		{Key: "channel", Value: "C123"},
		{Key: "text", Value: "hi <@U2>"},
		{Key: "as_user", Value: "true"},
		{Key: "thread_ts", Value: "1.000002"},
	}
	if fa.method != "chat.postMessage" || fmt.Sprint(fa.params) != fmt.Sprint(want) {
		t.Fatalf("call = %s %v", fa.method, fa.params)
	}

	if err := r.SendThreadReply(context.Background(), target, "1.000002", "/me waves"); err != nil {
		t.Fatalf("SendThreadReply: %v", err)
	}
	if text, _ := fa.params.Get("text"); fa.method != "chat.postMessage" || text != "_waves_" {
		t.Fatalf("action reply = %s %q", fa.method, text)
	}

	if err := r.SendThreadReply(context.Background(), target, "", "x"); !errors.Is(err, NewError(ErrorUnroutable, "")) {
		t.Fatalf("empty ts: err = %v", err)
	}
}

func TestHandleMessageAttachments(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	err := r.HandleMessage(WireMessage{
		User: "U2", Channel: "D2", Subtype: "bot_message", Text: "build",
		Attachments: []Attachment{{Color: "good", Text: "passed for <@U1>"}},
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	ev := ui.calls[0].ev
	if ev.Markup != `build<BR><FONT COLOR="#2fa44f">|</FONT> passed for @me` {
		t.Fatalf("markup = %q", ev.Markup)
	}
	if !ev.Flags.Has(FlagNick | FlagSystem | FlagNoLinkify) {
		t.Fatalf("flags = %v", ev.Flags)
	}
}
