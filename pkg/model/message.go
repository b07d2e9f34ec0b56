package model

import "time"

// Reaction groups every user that reacted with one emoji. Emoji is unique
// within a message; Users never contains duplicates.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

type Message struct {
	ID        int64      `json:"id"`
	ChannelID string     `json:"channelId"`
	UserID    string     `json:"userId"`
	Username  string     `json:"username"`
	Content   string     `json:"content"`
	Reactions []Reaction `json:"reactions"`
	Timestamp time.Time  `json:"timestamp"`
}

// MergeReaction adds userID to the emoji's reactor set, creating the entry if
// absent. Re-adding the same user is a no-op.
func MergeReaction(reactions []Reaction, emoji, userID string) []Reaction {
	for i, r := range reactions {
		if r.Emoji != emoji {
			continue
		}
		for _, u := range r.Users {
			if u == userID {
				return reactions
			}
		}
		reactions[i].Users = append(r.Users, userID)
		return reactions
	}
	return append(reactions, Reaction{Emoji: emoji, Users: []string{userID}})
}
