package slackwire

import (
	"context"
	"errors"
	"testing"
)

type fakeRTM struct {
	typ    string
	fields map[string]any
	err    error
	sent   int
}

func (f *fakeRTM) Send(_ context.Context, typ string, fields map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.typ, f.fields = typ, fields
	return nil
}

func TestHandleTyping(t *testing.T) {
	r, ui, _ := newTestRouter(DefaultConfig())
	log := &recordLogger{}
	r.SetLogger(log)

	if got := r.HandleTyping("U2", "D2"); got != RouteIM {
		t.Fatalf("IM typing = %v", got)
	}
	if len(ui.calls) != 1 || ui.calls[0].kind != "typing" || ui.calls[0].who != "bob" || ui.calls[0].period != TypingInterval {
		t.Fatalf("calls = %+v", ui.calls)
	}

	if got := r.HandleTyping("U2", "C123"); got != RouteChannel {
		t.Fatalf("channel typing = %v", got)
	}
	if len(ui.calls) != 1 || len(log.warns) != 0 {
		t.Fatalf("channel typing produced calls=%+v warns=%v", ui.calls, log.warns)
	}

	if got := r.HandleTyping("U2", "C404"); got != RouteUnresolved {
		t.Fatalf("unknown typing = %v", got)
	}
	if len(log.warns) != 1 {
		t.Fatalf("warns = %v", log.warns)
	}
}

func TestSendTyping(t *testing.T) {
	r, _, reg := newTestRouter(DefaultConfig())
	rtm := &fakeRTM{}
	r.SetRTM(rtm)
	reg.AddUser(User{ID: "U3", Name: "carol"})

	tests := []struct {
		name  string
		who   string
		state TypingState
		want  uint
	}{
		{"typing", "bob", Typing, 3},
		{"typed", "bob", Typed, 0},
		{"stopped", "bob", NotTyping, 0},
		{"no im", "carol", Typing, 0},
		{"unknown", "dave", Typing, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rtm.sent = 0
			if got := r.SendTyping(context.Background(), tt.who, tt.state); got != tt.want {
				t.Fatalf("SendTyping = %d, want %d", got, tt.want)
			}
			if wantSent := tt.want > 0; (rtm.sent == 1) != wantSent {
				t.Fatalf("sent %d frames", rtm.sent)
			}
		})
	}
	r.SendTyping(context.Background(), "bob", Typing)
	if rtm.typ != "typing" || rtm.fields["channel"] != "D2" {
		t.Fatalf("frame = %s %v", rtm.typ, rtm.fields)
	}

	rtm.err = errors.New("not connected")
	if got := r.SendTyping(context.Background(), "bob", Typing); got != 0 {
		t.Fatalf("failed send returned %d", got)
	}
}

func TestRouteOutcomeString(t *testing.T) {
	for o, want := range map[RouteOutcome]string{RouteIM: "im", RouteChannel: "channel", RouteUnresolved: "unresolved"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q", o, o.String())
		}
	}
}
