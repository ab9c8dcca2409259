package models

import (
	"sort"
	"time"
)

// Conversation is a two-party chat thread. Participants are stored sorted
// ascending so that lookups for an unordered pair hit the same document.
type Conversation struct {
	ID           string        `bson:"_id,omitempty" json:"id"`
	Participants []string      `bson:"participants" json:"participants"`
	ReadReceipts []ReadReceipt `bson:"read_receipts" json:"read_receipts"`
	Messages     []*Message    `bson:"-" json:"messages,omitempty"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// ReadReceipt tracks how far one participant has read. At most one per
// (conversation, profile) pair; a later upsert overwrites the timestamp.
type ReadReceipt struct {
	ID           string    `bson:"id" json:"id"`
	ProfileID    string    `bson:"profile_id" json:"profile_id"`
	LastViewedAt time.Time `bson:"last_viewed_at" json:"last_viewed_at"`
}

// CanonicalPair returns the two profile ids sorted ascending.
func CanonicalPair(a, b string) []string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair
}

func (c *Conversation) HasParticipant(profileID string) bool {
	for _, p := range c.Participants {
		if p == profileID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except the given one.
func (c *Conversation) OtherParticipants(profileID string) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != profileID {
			out = append(out, p)
		}
	}
	return out
}
