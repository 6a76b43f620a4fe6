package slackwire

import "encoding/json"

// Dispatcher routes RTM frames to registered callbacks.
type Dispatcher struct {
	onHello   func()
	onMessage func(WireMessage)
	onTyping  func(TypingEvent)
	onError   func(error)
}

func (d *Dispatcher) SetOnHello(fn func())              { d.onHello = fn }
func (d *Dispatcher) SetOnMessage(fn func(WireMessage)) { d.onMessage = fn }
func (d *Dispatcher) SetOnTyping(fn func(TypingEvent))  { d.onTyping = fn }
func (d *Dispatcher) SetOnError(fn func(error))         { d.onError = fn }

func (d *Dispatcher) Dispatch(frame json.RawMessage) {
	var env envelope
	if err := UnmarshalData(frame, &env); err != nil {
		d.fireError(WrapError(ErrorSerialization, "failed to unmarshal frame", err))
		return
	}
	// Acknowledgements of frames we sent.
	if env.ReplyTo != nil {
		if env.OK != nil && !*env.OK {
			d.fireError(FromProtocolError(env.Error))
		}
		return
	}
	switch env.Type {
	case eventError:
		d.fireError(FromProtocolError(env.Error))
	case eventHello:
		if d.onHello != nil {
			d.onHello()
		}
	case eventMessage:
		if d.onMessage == nil {
			return
		}
		var msg WireMessage
		if err := UnmarshalData(frame, &msg); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal message event", err))
			return
		}
		d.onMessage(msg)
	case eventTyping:
		if d.onTyping == nil {
			return
		}
		var ev TypingEvent
		if err := UnmarshalData(frame, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal user_typing event", err))
			return
		}
		d.onTyping(ev)
	}
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
