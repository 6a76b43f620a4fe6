package slackwire

// ConversationRef is the target of an event: either an IMTarget or a ChannelTarget.
type ConversationRef interface {
	// ID is the wire channel id used to address the conversation.
	ID() string
	isConversation()
}

// IMTarget is a direct-message conversation with one peer.
type IMTarget struct {
	User User
}

func (t IMTarget) ID() string    { return t.User.IM }
func (IMTarget) isConversation() {}

// ChannelTarget is a multi-party conversation.
type ChannelTarget struct {
	Channel Channel
}

func (t ChannelTarget) ID() string    { return t.Channel.ID }
func (ChannelTarget) isConversation() {}

// Resolve maps a (user, channel) id pair to its conversation.
// A user whose direct-message id equals channelID wins over any channel
// registered under the same id. ok is false when neither matches.
func Resolve(dir Directory, userID, channelID string) (ConversationRef, bool) {
	if channelID == "" {
		return nil, false
	}
	if u, ok := dir.User(userID); ok && u.IM == channelID {
		return IMTarget{User: u}, true
	}
	if c, ok := dir.Channel(channelID); ok {
		return ChannelTarget{Channel: c}, true
	}
	return nil, false
}
