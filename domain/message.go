// Package domain contains core concepts of the dispatch system.
// This file defines chat messages.
// Messages are immutable and appended to an append-only log.
package domain

import (
	"time"
)

const (
	AdminUsername     = "Admin"
	AnonymousUsername = "Anonymous"
	welcomeText       = "Welcome"
)

// ChatMessage represents an immutable chat entry.
type ChatMessage struct {
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
	Text      string `json:"text"`
}

func NewChatMessage(username, text string, at time.Time) ChatMessage {
	if username == "" {
		username = AnonymousUsername
	}
	return ChatMessage{
		Username:  username,
		Timestamp: at.UnixMilli(),
		Text:      text,
	}
}

// WelcomeMessage is the first entry of every fresh chat log.
func WelcomeMessage(at time.Time) ChatMessage {
	return NewChatMessage(AdminUsername, welcomeText, at)
}
