package slackwire

import (
	"strings"
	"time"
)

// Flags is a set of independent facts about a displayed message.
type Flags uint16

const (
	FlagReceived  Flags = 1 << iota // arrived from the service
	FlagSystem                      // system notice (any subtype except me_message)
	FlagInvisible                   // hidden on the wire
	FlagNick                        // mentions the account's own user
	FlagNotify                      // broadcast keyword (@channel, @here, ...)
	FlagNoLinkify                   // markup already carries its links
	FlagDelayed                     // replayed from history
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{FlagReceived, "received"},
	{FlagSystem, "system"},
	{FlagInvisible, "invisible"},
	{FlagNick, "nick"},
	{FlagNotify, "notify"},
	{FlagNoLinkify, "no_linkify"},
	{FlagDelayed, "delayed"},
}

// Has reports whether every flag in f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// String returns the set flags joined by "|".
func (f Flags) String() string {
	var parts []string
	for _, n := range flagNames {
		if f.Has(n.f) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// DisplayEvent is a transcoded message ready for the UI.
type DisplayEvent struct {
	Target ConversationRef
	Sender string
	Markup string
	Flags  Flags
	SentAt time.Time
}

// TypingEvent emitted when a user starts typing.
type TypingEvent struct {
	User    string `json:"user"`
	Channel string `json:"channel"`
}
