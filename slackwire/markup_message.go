package slackwire

import "strings"

// attachmentColors maps the named attachment colors to their hex values.
var attachmentColors = map[string]string{
	"good":    "#2fa44f",
	"warning": "#de9e31",
	"danger":  "#d50200",
}

// RenderMessage renders a whole message: its text, then one bar-prefixed
// line per attachment part, then a link per shared file.
func (tc Transcoder) RenderMessage(msg WireMessage) (string, Flags) {
	markup, flags := tc.Transcode(msg.Text, msg.Subtype)
	if len(msg.Attachments) == 0 && len(msg.Files) == 0 {
		return markup, flags
	}

	var b strings.Builder
	b.WriteString(markup)
	for _, a := range msg.Attachments {
		flags |= tc.writeAttachment(&b, a)
	}
	for _, f := range msg.Files {
		tc.writeFile(&b, f)
	}
	return b.String(), flags
}

func (tc Transcoder) writeAttachment(b *strings.Builder, a Attachment) Flags {
	var flags Flags
	bar := "| "
	if c := attachmentColor(a.Color); c != "" {
		bar = `<FONT COLOR="` + c + `">|</FONT> `
	}
	line := func() {
		if b.Len() > 0 {
			b.WriteString(markupLineBreak)
		}
		b.WriteString(bar)
	}
	wire := func(s string) {
		m, f := tc.Transcode(s, "")
		flags |= f &^ FlagNoLinkify
		b.WriteString(m)
	}

	wrote := false
	if a.Pretext != "" {
		line()
		wire(a.Pretext)
		wrote = true
	}
	if a.AuthorName != "" {
		line()
		b.WriteString("<B>")
		tc.writeLinked(b, a.AuthorLink, a.AuthorName)
		b.WriteString("</B>")
		wrote = true
	}
	if a.Title != "" {
		line()
		b.WriteString("<B>")
		tc.writeLinked(b, a.TitleLink, a.Title)
		b.WriteString("</B>")
		wrote = true
	}
	if a.Text != "" {
		line()
		wire(a.Text)
		wrote = true
	}
	for _, f := range a.Fields {
		line()
		b.WriteString("<B>")
		tc.writeText(b, f.Title)
		b.WriteString("</B>: ")
		wire(f.Value)
		wrote = true
	}
	if a.Footer != "" {
		line()
		b.WriteString("<I>")
		wire(a.Footer)
		b.WriteString("</I>")
		wrote = true
	}
	if !wrote && a.Fallback != "" {
		line()
		wire(a.Fallback)
	}
	return flags
}

func (tc Transcoder) writeFile(b *strings.Builder, f File) {
	name := f.Title
	if name == "" {
		name = f.Name
	}
	url := f.URLPrivate
	if url == "" {
		url = f.Permalink
	}
	if name == "" && url == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString(markupLineBreak)
	}
	tc.writeLinked(b, url, name)
}

// writeLinked writes text as an anchor when href is set.
func (tc Transcoder) writeLinked(b *strings.Builder, href, text string) {
	if text == "" {
		text = href
	}
	if href == "" {
		tc.writeText(b, text)
		return
	}
	b.WriteString(`<A HREF="`)
	_, _ = hrefEscaper.WriteString(b, href)
	b.WriteString(`">`)
	tc.writeText(b, text)
	b.WriteString("</A>")
}

// attachmentColor returns a display color, or "" for none or an unknown name.
func attachmentColor(c string) string {
	if hex, ok := attachmentColors[c]; ok {
		return hex
	}
	if len(c) == 6 && isHex(c) {
		c = "#" + c
	}
	if len(c) == 7 && c[0] == '#' && isHex(c[1:]) {
		return c
	}
	return ""
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
