// Package domain contains core concepts of the dispatch system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "strings"

// NormalizeParticipant trims a display name, an empty result means no name.
func NormalizeParticipant(name string) string {
	return strings.TrimSpace(name)
}
