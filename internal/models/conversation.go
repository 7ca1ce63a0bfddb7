package models

import (
	"sort"
	"time"
)

type Message struct {
	Sender     string    `json:"sender" bson:"sender"`
	SenderName string    `json:"senderName,omitempty" bson:"senderName,omitempty"`
	Message    string    `json:"message" bson:"message"`
	TimeSent   time.Time `json:"timeSent" bson:"timeSent"`
}

type Conversation struct {
	ID           string            `json:"id" bson:"_id,omitempty"`
	PairKey      string            `json:"-" bson:"pairKey"`
	Members      [2]string         `json:"members" bson:"members"` // Always 2 members per conversation
	MemberNames  map[string]string `json:"memberNames,omitempty" bson:"memberNames,omitempty"`
	ChatHistory  []Message         `json:"chatHistory" bson:"chatHistory"`
	LastActivity time.Time         `json:"lastActivity" bson:"lastActivity"`
	IsPredefined bool              `json:"isPredefined,omitempty" bson:"isPredefined,omitempty"`
}

// PairKey derives the order-independent identity of a two-member conversation.
// PairKey(a, b) == PairKey(b, a) for all a, b.
func PairKey(userA, userB string) string {
	members := []string{userA, userB}
	sort.Strings(members)
	return members[0] + ":" + members[1]
}

// OtherMember returns the member of the conversation that is not userID.
func (c *Conversation) OtherMember(userID string) string {
	if c.Members[0] == userID {
		return c.Members[1]
	}
	return c.Members[0]
}
