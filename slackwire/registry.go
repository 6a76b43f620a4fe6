package slackwire

import "sync"

// EntityKind selects which table a lookup consults.
type EntityKind int

const (
	KindChannel EntityKind = iota
	KindUser
)

// EntityLookup resolves ids to display names.
// ok is false when the entity is unknown or not loaded yet; that is not an error.
type EntityLookup interface {
	Lookup(kind EntityKind, id string) (name string, ok bool)
}

// NameLookup resolves display names back to ids.
type NameLookup interface {
	LookupName(kind EntityKind, name string) (id string, ok bool)
}

// Directory is the read-only view of users and channels the Router needs.
type Directory interface {
	EntityLookup
	NameLookup
	User(id string) (User, bool)
	UserByName(name string) (User, bool)
	Channel(id string) (Channel, bool)
}

// User is a known account.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IM   string `json:"im,omitempty"` // direct-message channel id, empty when none is open
}

// ChannelType tells which history call serves a channel.
type ChannelType int

const (
	ChannelUnknown ChannelType = iota
	ChannelPublic              // visible but not joined
	ChannelMember
	ChannelGroup // private channel
	ChannelMPIM  // multi-party direct message
	ChannelDeleted
)

// String returns the string representation of a ChannelType.
func (t ChannelType) String() string {
	switch t {
	case ChannelPublic:
		return "public"
	case ChannelMember:
		return "member"
	case ChannelGroup:
		return "group"
	case ChannelMPIM:
		return "mpim"
	case ChannelDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Channel is a known multi-party conversation.
type Channel struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Type ChannelType `json:"type"`
}

// Registry is an in-memory Directory indexed by id and by name.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	users        map[string]User
	userNames    map[string]string
	channels     map[string]Channel
	channelNames map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users:        make(map[string]User),
		userNames:    make(map[string]string),
		channels:     make(map[string]Channel),
		channelNames: make(map[string]string),
	}
}

// AddUser inserts or replaces a user.
func (r *Registry) AddUser(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.users[u.ID]; ok && old.Name != u.Name {
		delete(r.userNames, old.Name)
	}
	r.users[u.ID] = u
	if u.Name != "" {
		r.userNames[u.Name] = u.ID
	}
}

// RemoveUser drops a user from both indexes.
func (r *Registry) RemoveUser(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.users[id]; ok {
		delete(r.userNames, old.Name)
		delete(r.users, id)
	}
}

// AddChannel inserts or replaces a channel.
func (r *Registry) AddChannel(c Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.channels[c.ID]; ok && old.Name != c.Name {
		delete(r.channelNames, old.Name)
	}
	r.channels[c.ID] = c
	if c.Name != "" {
		r.channelNames[c.Name] = c.ID
	}
}

// RemoveChannel drops a channel from both indexes.
func (r *Registry) RemoveChannel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.channels[id]; ok {
		delete(r.channelNames, old.Name)
		delete(r.channels, id)
	}
}

// User returns the user with the given id.
func (r *Registry) User(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok
}

// UserByName returns the user currently known by name.
func (r *Registry) UserByName(name string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.userNames[name]
	if !ok {
		return User{}, false
	}
	u, ok := r.users[id]
	return u, ok
}

// Channel returns the channel with the given id.
func (r *Registry) Channel(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[id]
	return c, ok
}

// Lookup implements EntityLookup.
func (r *Registry) Lookup(kind EntityKind, id string) (string, bool) {
	switch kind {
	case KindUser:
		u, ok := r.User(id)
		return u.Name, ok && u.Name != ""
	case KindChannel:
		c, ok := r.Channel(id)
		return c.Name, ok && c.Name != ""
	}
	return "", false
}

// LookupName implements NameLookup.
func (r *Registry) LookupName(kind EntityKind, name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var id string
	var ok bool
	switch kind {
	case KindUser:
		id, ok = r.userNames[name]
	case KindChannel:
		id, ok = r.channelNames[name]
	}
	return id, ok
}
