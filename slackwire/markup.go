package slackwire

import "strings"

const (
	markupLineBreak = "<BR>"
	meCommand       = "/me "
)

var broadcastKeywords = map[string]bool{
	"channel":  true,
	"group":    true,
	"here":     true,
	"everyone": true,
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", ">", "&gt;")
	hrefEscaper = strings.NewReplacer(`"`, "%22")
)

type tokenKind int

const (
	tokenLink tokenKind = iota
	tokenChannel
	tokenUser
	tokenBroadcast
)

// token is one <...> reference found in wire text.
type token struct {
	kind     tokenKind
	id       string // marker stripped, except for links
	label    string
	hasLabel bool
}

// text is the label when one was given, even an empty one, else the id.
func (t token) text() string {
	if t.hasLabel {
		return t.label
	}
	return t.id
}

// scanToken parses the token whose body starts at s[start], just past '<'.
// It returns the token and the index to resume scanning from. An unterminated
// token takes the rest of the input.
func scanToken(s string, start int) (token, int) {
	body, next := s[start:], len(s)
	if end := strings.IndexByte(body, '>'); end >= 0 {
		body, next = body[:end], start+end+1
	}

	var t token
	if bar := strings.IndexByte(body, '|'); bar >= 0 {
		t.label, t.hasLabel = body[bar+1:], true
		body = body[:bar]
	}
	t.id = body
	if body == "" {
		return t, next
	}
	switch body[0] {
	case '#':
		t.kind, t.id = tokenChannel, body[1:]
	case '@':
		t.kind, t.id = tokenUser, body[1:]
	case '!':
		t.kind, t.id = tokenBroadcast, body[1:]
	}
	return t, next
}

// Transcoder converts wire text to display markup.
type Transcoder struct {
	Lookup     EntityLookup // may be nil
	Self       string       // own user id, for mention detection
	EscapeText bool         // escape & and > outside tokens
}

// ToDisplay transcodes raw wire text with default settings.
func ToDisplay(raw, subtype string, lookup EntityLookup, self string) (string, Flags) {
	return Transcoder{Lookup: lookup, Self: self}.Transcode(raw, subtype)
}

// Transcode converts raw wire text into display markup and the flags the
// content implies. It accepts any input.
func (tc Transcoder) Transcode(raw, subtype string) (string, Flags) {
	var b strings.Builder
	b.Grow(len(raw))

	var flags Flags
	if subtype == SubtypeMeMessage {
		b.WriteString(meCommand)
	} else if subtype != "" {
		flags |= FlagSystem
	}
	flags |= FlagNoLinkify

	for i := 0; i < len(raw); {
		n := strings.IndexAny(raw[i:], "\n<")
		if n < 0 {
			tc.writeText(&b, raw[i:])
			break
		}
		tc.writeText(&b, raw[i:i+n])
		i += n
		if raw[i] == '\n' {
			b.WriteString(markupLineBreak)
			i++
			continue
		}
		var t token
		t, i = scanToken(raw, i+1)
		flags |= tc.writeToken(&b, t)
	}
	return b.String(), flags
}

func (tc Transcoder) writeText(b *strings.Builder, s string) {
	if tc.EscapeText {
		_, _ = textEscaper.WriteString(b, s)
		return
	}
	b.WriteString(s)
}

func (tc Transcoder) writeToken(b *strings.Builder, t token) Flags {
	var flags Flags
	switch t.kind {
	case tokenChannel:
		b.WriteByte('#')
		tc.writeText(b, tc.resolve(KindChannel, t))
	case tokenUser:
		b.WriteByte('@')
		if tc.Self != "" && t.id == tc.Self {
			flags |= FlagNick
		}
		tc.writeText(b, tc.resolve(KindUser, t))
	case tokenBroadcast:
		if broadcastKeywords[t.id] {
			flags |= FlagNotify
			b.WriteByte('@')
			tc.writeText(b, t.text())
		} else {
			b.WriteString("&lt;")
			tc.writeText(b, t.text())
			b.WriteString("&gt;")
		}
	default:
		b.WriteString(`<A HREF="`)
		_, _ = hrefEscaper.WriteString(b, t.id)
		b.WriteString(`">`)
		tc.writeText(b, t.text())
		b.WriteString("</A>")
	}
	return flags
}

// resolve picks the label, then the registry name, then the raw id.
// The registry is only consulted when no label was given.
func (tc Transcoder) resolve(kind EntityKind, t token) string {
	if t.hasLabel {
		return t.label
	}
	if tc.Lookup != nil {
		if name, ok := tc.Lookup.Lookup(kind, t.id); ok {
			return name
		}
	}
	return t.id
}
