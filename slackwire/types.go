package slackwire

import (
	"encoding/json"
	"strconv"
)

const (
	eventHello   = "hello"
	eventMessage = "message"
	eventTyping  = "user_typing"
	eventError   = "error"

	outboundPing   = "ping"
	outboundTyping = "typing"

	SubtypeMeMessage    = "me_message"
	SubtypeChannelTopic = "channel_topic"
	SubtypeGroupTopic   = "group_topic"
)

// WireMessage is a message as the service delivers it, live or from history.
type WireMessage struct {
	Type     string `json:"type,omitempty"`
	User     string `json:"user,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Subtype  string `json:"subtype,omitempty"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
	Text     string `json:"text"`
	Topic    string `json:"topic,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
	Files       []File       `json:"files,omitempty"`
}

// Attachment is a legacy rich block shown under the message text.
type Attachment struct {
	Fallback   string            `json:"fallback,omitempty"`
	Color      string            `json:"color,omitempty"`
	Pretext    string            `json:"pretext,omitempty"`
	AuthorName string            `json:"author_name,omitempty"`
	AuthorLink string            `json:"author_link,omitempty"`
	Title      string            `json:"title,omitempty"`
	TitleLink  string            `json:"title_link,omitempty"`
	Text       string            `json:"text,omitempty"`
	Fields     []AttachmentField `json:"fields,omitempty"`
	Footer     string            `json:"footer,omitempty"`
}

type AttachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short,omitempty"`
}

// File is an upload shared in a message.
type File struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Title      string `json:"title,omitempty"`
	URLPrivate string `json:"url_private,omitempty"`
	Permalink  string `json:"permalink,omitempty"`
}

// IsThreadReply reports whether the message was posted inside a thread.
func (m WireMessage) IsThreadReply() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.TS
}

// envelope is the part of every RTM frame needed to route it.
type envelope struct {
	Type    string `json:"type"`
	ReplyTo *int64 `json:"reply_to,omitempty"`
	OK      *bool  `json:"ok,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error describes an RTM protocol error.
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return strconv.Itoa(e.Code) + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
