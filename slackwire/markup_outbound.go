package slackwire

import (
	"html"
	"regexp"
	"strings"
)

var (
	wireEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	// A link token ends at '>' and its url at the first '|'.
	wireHrefEscaper = strings.NewReplacer("|", "%7C", "<", "%3C", ">", "%3E")

	// A mention must not follow a word character, so addresses like a@b stay text.
	mentionRe = regexp.MustCompile(`(^|[^\w@#])([@#])([\w\-]+(?:\.[\w\-]+)*)`)
	hrefRe    = regexp.MustCompile(`(?i)\bhref\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
)

// tagMarks maps formatting tags to the wire's inline markers.
var tagMarks = map[string]string{
	"b":      "*",
	"strong": "*",
	"i":      "_",
	"em":     "_",
	"s":      "~",
	"strike": "~",
	"del":    "~",
	"code":   "`",
}

// ToWire converts display markup typed by the user into wire text.
// Mentions of known users and channels become tokens; names the lookup does
// not know are sent as plain text.
func ToWire(markup string, names NameLookup) string {
	var b strings.Builder
	b.Grow(len(markup))

	for i := 0; i < len(markup); {
		lt := strings.IndexByte(markup[i:], '<')
		if lt < 0 {
			writeWireText(&b, markup[i:], names)
			break
		}
		writeWireText(&b, markup[i:i+lt], names)
		i += lt

		gt := strings.IndexByte(markup[i:], '>')
		if gt < 0 {
			writeWireText(&b, markup[i:], names)
			break
		}
		tag := markup[i+1 : i+gt]
		i += gt + 1

		name, closing := tagName(tag)
		switch {
		case name == "br":
			b.WriteByte('\n')
		case name == "a" && !closing:
			href := anchorHref(tag)
			inner := markup[i:]
			end := indexFold(inner, "</a>")
			if end < 0 {
				end = len(inner)
				i = len(markup)
			} else {
				i += end + len("</a>")
			}
			writeLink(&b, href, stripTags(inner[:end]))
		case tagMarks[name] != "":
			b.WriteString(tagMarks[name])
		}
	}
	return b.String()
}

func writeLink(b *strings.Builder, href, text string) {
	if href == "" {
		b.WriteString(wireEscaper.Replace(text))
		return
	}
	b.WriteByte('<')
	_, _ = wireHrefEscaper.WriteString(b, href)
	if text != "" && text != href {
		b.WriteByte('|')
		b.WriteString(wireEscaper.Replace(text))
	}
	b.WriteByte('>')
}

func writeWireText(b *strings.Builder, s string, names NameLookup) {
	if s == "" {
		return
	}
	text := wireEscaper.Replace(html.UnescapeString(s))
	b.WriteString(mentionRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := mentionRe.FindStringSubmatch(m)
		prefix, marker, name := sub[1], sub[2], sub[3]
		if tok, ok := mentionToken(marker, name, names); ok {
			return prefix + tok
		}
		return m
	}))
}

func mentionToken(marker, name string, names NameLookup) (string, bool) {
	if marker == "@" && broadcastKeywords[name] {
		return "<!" + name + ">", true
	}
	if names == nil {
		return "", false
	}
	kind := KindUser
	if marker == "#" {
		kind = KindChannel
	}
	id, ok := names.LookupName(kind, name)
	if !ok {
		return "", false
	}
	return "<" + marker + id + ">", true
}

// tagName returns the lower-cased element name of a tag body and whether it
// closes an element.
func tagName(tag string) (string, bool) {
	closing := strings.HasPrefix(tag, "/")
	tag = strings.TrimPrefix(tag, "/")
	if end := strings.IndexAny(tag, " \t\n/"); end >= 0 {
		tag = tag[:end]
	}
	return strings.ToLower(tag), closing
}

func anchorHref(tag string) string {
	m := hrefRe.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return html.UnescapeString(m[1] + m[2] + m[3])
}

// stripTags drops every tag and decodes entities, leaving visible text.
func stripTags(s string) string {
	var b strings.Builder
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:lt])
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			break
		}
		s = s[lt+gt+1:]
	}
	return html.UnescapeString(b.String())
}

// indexFold is an ASCII case-insensitive strings.Index.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
