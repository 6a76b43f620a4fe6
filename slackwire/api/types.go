package api

import (
	"net/url"
	"strings"
)

// Param is one call argument. Calls take them in order.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered argument list.
type Params []Param

// Get returns the first value for key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Encode form-encodes the params, keeping their order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// Response is the status part every Web API reply carries.
type Response struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Warning  string `json:"warning,omitempty"`
	Metadata struct {
		NextCursor string `json:"next_cursor,omitempty"`
	} `json:"response_metadata"`
}

// Error is an "ok": false reply.
type Error struct {
	Code string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return "api error: " + e.Code
}

// ConnectResponse is the reply to rtm.connect.
type ConnectResponse struct {
	Response
	URL  string `json:"url"`
	Self struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"self"`
	Team struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Domain string `json:"domain"`
	} `json:"team"`
}
