package services

import (
	"dispatch-lab/contract"
	"dispatch-lab/domain/event"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Sanitizer runs chat text through the optional censor and reports
// what it found. A nil censor leaves text untouched.
type Sanitizer struct {
	log       *slog.Logger
	censor    contract.Censor
	telemetry chan<- event.Event
}

func NewSanitizer(log *slog.Logger, censor contract.Censor, telemetry chan<- event.Event) *Sanitizer {
	return &Sanitizer{log: log, censor: censor, telemetry: telemetry}
}

// Sanitize returns the text to store and forward, and whether it changed.
func (s *Sanitizer) Sanitize(author, text string) (string, bool) {
	if s == nil || s.censor == nil || strings.TrimSpace(text) == "" {
		return text, false
	}
	sanitized, foundWords := s.censor.Censor(text)
	if len(foundWords) == 0 {
		return text, false
	}
	for _, word := range foundWords {
		event.Emit(s.telemetry, event.New(event.CensorshipHit, event.Censored{Word: word}))
	}
	info := whatlanggo.Detect(text)
	s.log.Info("Message censored",
		"author", author,
		"lang", info.Lang.Iso6391(),
		"hits", len(foundWords))
	return sanitized, true
}
