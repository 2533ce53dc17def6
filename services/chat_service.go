package services

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/contract"
	"dispatch-lab/domain"
	"dispatch-lab/domain/event"
	"dispatch-lab/errors"
	"dispatch-lab/presence"
	"dispatch-lab/runtime"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const ChatHub = "chat"

// ChatService keeps the presence list and the chat log of the chat hub.
type ChatService struct {
	log          *slog.Logger
	registry     *runtime.Registry
	participants *presence.Set
	messages     contract.Collection[domain.ChatMessage]
	sanitizer    *Sanitizer
	telemetry    chan<- event.Event
	now          func() time.Time
}

func NewChatService(log *slog.Logger, registry *runtime.Registry, participants *presence.Set,
	messages contract.Collection[domain.ChatMessage], sanitizer *Sanitizer, telemetry chan<- event.Event) *ChatService {
	return &ChatService{
		log:          log.With("hub", ChatHub),
		registry:     registry,
		participants: participants,
		messages:     messages,
		sanitizer:    sanitizer,
		telemetry:    telemetry,
		now:          time.Now,
	}
}

// SeedWelcome appends the admin greeting when the log is empty.
func (s *ChatService) SeedWelcome() error {
	if s.messages.Len() > 0 {
		return nil
	}
	return s.messages.Append(domain.WelcomeMessage(s.now()))
}

func (s *ChatService) Name() string {
	return ChatHub
}

func (s *ChatService) Routes() []runtime.Route {
	return []runtime.Route{
		{Kind: domain.KindUserJoin, Handle: s.join},
		{Kind: domain.KindUserLeave, Handle: s.leave},
		{Kind: domain.KindChat, Handle: s.chat},
	}
}

// OnConnect sends the participants then the whole log, to the new connection only.
func (s *ChatService) OnConnect(ctx context.Context, connID string) {
	s.send(ctx, connID, domain.EventUsersList, s.participants.All())
	history := s.messages.Snapshot()
	if history == nil {
		history = []domain.ChatMessage{}
	}
	s.send(ctx, connID, domain.EventChat, history)
}

// OnDisconnect turns the departure of a joined connection into a leave
// and tells the remaining connections.
func (s *ChatService) OnDisconnect(ctx context.Context, record runtime.Record) {
	if record.DisplayName == "" {
		return
	}
	s.participants.Remove(record.DisplayName)
	s.broadcastUsers(ctx)
}

func (s *ChatService) join(ctx context.Context, connID string, env codec.Envelope) {
	name, err := env.BindText("name")
	cmd := domain.JoinCommand{Name: domain.NormalizeParticipant(name)}
	if err == nil {
		err = codec.Validate(cmd)
	}
	if err != nil {
		s.reject(ctx, connID, domain.KindUserJoin, err)
		return
	}
	record, ok := s.registry.Get(connID)
	if !ok {
		return
	}
	name = cmd.Name
	// A connection holds a single name, rejoining under a new one replaces it
	// unless another connection still uses the old one.
	if previous := record.DisplayName; previous != "" && previous != name && !s.registry.Holds(previous, connID) {
		s.participants.Remove(previous)
	}
	s.registry.Attach(connID, name)
	s.participants.Add(name)
	s.log.Debug("User joined", "conn_id", connID, "name", name)
	s.broadcastUsers(ctx)
}

// leave updates state only, the list is broadcast on disconnect.
func (s *ChatService) leave(_ context.Context, connID string, env codec.Envelope) {
	previous := s.registry.Detach(connID)
	name := previous
	if env.HasPayload() {
		if bound, err := env.BindText("name"); err == nil {
			cmd := domain.LeaveCommand{Name: domain.NormalizeParticipant(bound)}
			if cmd.Name != "" && codec.Validate(cmd) == nil {
				name = cmd.Name
			}
		}
	}
	if name == "" {
		return
	}
	s.participants.Remove(name)
	s.log.Debug("User left", "conn_id", connID, "name", name)
}

func (s *ChatService) chat(ctx context.Context, connID string, env codec.Envelope) {
	text, err := env.BindText("text")
	if err == nil {
		err = codec.Validate(domain.ChatCommand{Text: text})
	}
	if err != nil {
		s.reject(ctx, connID, domain.KindChat, err)
		return
	}
	record, _ := s.registry.Get(connID)
	author := record.DisplayName
	if author == "" {
		author = domain.AnonymousUsername
	}

	payload := env.Payload
	if sanitized, changed := s.sanitizer.Sanitize(author, text); changed {
		text = sanitized
		if payload, err = replaceText(env.Payload, text); err != nil {
			s.reject(ctx, connID, domain.KindChat, err)
			return
		}
	}

	if err := s.messages.Append(domain.NewChatMessage(author, text, s.now())); err != nil {
		s.log.Error("Unable to store chat message", "conn_id", connID, "error", err)
		return
	}
	sent, err := s.registry.Broadcast(ctx, domain.EventMessage, payload, connID)
	if err != nil {
		s.log.Error("Unable to broadcast message", "conn_id", connID, "error", err)
		return
	}
	event.Emit(s.telemetry, event.New(event.MessageSentType, event.MessageSent{Hub: ChatHub, Recipients: sent}))
}

func (s *ChatService) broadcastUsers(ctx context.Context) {
	if _, err := s.registry.Broadcast(ctx, domain.EventUsersList, s.participants.All(), ""); err != nil {
		s.log.Error("Unable to broadcast users", "error", err)
	}
}

func (s *ChatService) reject(ctx context.Context, connID string, kind domain.Kind, err error) {
	s.log.Debug("Rejected command", "event", kind, "conn_id", connID, "error", err)
	s.send(ctx, connID, domain.EventError, domain.Notice{Info: domain.InfoInvalidPayload})
}

func (s *ChatService) send(ctx context.Context, connID, event string, payload any) {
	if err := s.registry.SendTo(ctx, connID, event, payload); err != nil {
		s.log.Error("Unable to encode reply", "event", event, "conn_id", connID, "error", err)
	}
}

// replaceText rewrites the text of a chat payload keeping its shape,
// a bare string stays a bare string and an object keeps its other fields.
func replaceText(raw json.RawMessage, text string) (json.RawMessage, error) {
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return json.Marshal(text)
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	encoded, err := json.Marshal(text)
	if err != nil {
		return nil, err
	}
	object["text"] = encoded
	return json.Marshal(object)
}
