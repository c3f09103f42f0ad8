package types

import "time"

// Role is a platform role.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ConversationType distinguishes direct and group conversations.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// MessageType represents the payload kind of a message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// GroupNameFallback is shown for group conversations without a name.
const GroupNameFallback = "Group Chat"

// User is an identity owned by the backend.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	AvatarRef    *string   `json:"avatarRef,omitempty"`
	Online       bool      `json:"online"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// Contact is a user with relationship context.
type Contact struct {
	User
	IsFollowing           bool    `json:"isFollowing"`
	IsFollower            bool    `json:"isFollower"`
	MutualConnectionCount uint    `json:"mutualConnectionCount"`
	Bio                   *string `json:"bio,omitempty"`
}

// Participant is a conversation member.
type Participant struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarRef *string `json:"avatarRef,omitempty"`
	Online    bool    `json:"online"`
}

// LastMessage summarizes the newest message of a conversation.
type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"senderId"`
}

// Conversation is a direct or group conversation.
type Conversation struct {
	ID           string           `json:"id"`
	Type         ConversationType `json:"type"`
	Participants []Participant    `json:"participants"`
	LastMessage  LastMessage      `json:"lastMessage"`
	UnreadCount  uint             `json:"unreadCount"`
	IsPinned     bool             `json:"isPinned"`
	IsMuted      bool             `json:"isMuted"`
	GroupName    *string          `json:"groupName,omitempty"`
}

// Participant returns the member with the given id.
func (c Conversation) Participant(id string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// Clone returns a deep copy.
func (c Conversation) Clone() Conversation {
	out := c
	out.Participants = append([]Participant(nil), c.Participants...)
	if c.GroupName != nil {
		name := *c.GroupName
		out.GroupName = &name
	}
	return out
}

// ReplyTo is a snapshot of the message being replied to, captured at compose
// time. It never changes after capture.
type ReplyTo struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderName string `json:"senderName"`
}

// Reactions maps an emoji to the ids of users who reacted with it.
type Reactions map[string][]string

// Has reports whether userID reacted with emoji.
func (r Reactions) Has(emoji, userID string) bool {
	for _, id := range r[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r Reactions) Clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, users := range r {
		out[emoji] = append([]string(nil), users...)
	}
	return out
}

// Message represents a thread message.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	Content        string      `json:"content"`
	Timestamp      time.Time   `json:"timestamp"`
	Type           MessageType `json:"type"`
	Edited         bool        `json:"edited"`
	ReplyTo        *ReplyTo    `json:"replyTo,omitempty"`
	Reactions      Reactions   `json:"reactions"`
}

// Clone returns a deep copy.
func (m Message) Clone() Message {
	out := m
	if m.ReplyTo != nil {
		reply := *m.ReplyTo
		out.ReplyTo = &reply
	}
	out.Reactions = m.Reactions.Clone()
	return out
}

// LoadState distinguishes a view that is still loading from one that loaded
// empty.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadLoading
	LoadLoaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}
