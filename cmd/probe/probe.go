package main

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/domain"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

// Received is one envelope seen by the probe.
type Received struct {
	After   time.Duration
	Event   string
	Payload string
}

// Probe drives one WebSocket connection and records every envelope it reads.
type Probe struct {
	conn     *websocket.Conn
	timeout  time.Duration
	start    time.Time
	received []Received
}

func Dial(ctx context.Context, url string, timeout time.Duration) (*Probe, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Probe{conn: conn, timeout: timeout, start: time.Now()}, nil
}

func (p *Probe) Send(event string, payload any) error {
	message, err := codec.Encode(event, payload)
	if err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, message)
}

// Await reads until an envelope of one of the given events shows up.
func (p *Probe) Await(events ...string) (codec.Envelope, error) {
	deadline := time.Now().Add(p.timeout)
	for {
		if err := p.conn.SetReadDeadline(deadline); err != nil {
			return codec.Envelope{}, err
		}
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			return codec.Envelope{}, fmt.Errorf("waiting for %v: %w", events, err)
		}
		env, err := codec.Decode(message)
		if err != nil {
			return codec.Envelope{}, err
		}
		p.received = append(p.received, Received{
			After:   time.Since(p.start).Round(time.Millisecond),
			Event:   env.Event,
			Payload: string(env.Payload),
		})
		for _, e := range events {
			if env.Event == e {
				return env, nil
			}
		}
	}
}

func (p *Probe) Received() []Received {
	return p.received
}

func (p *Probe) Close() error {
	_ = p.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return p.conn.Close()
}

// RunDashboard creates an instance and walks it through its whole lifecycle.
func RunDashboard(p *Probe) error {
	if _, err := p.Await(domain.EventInstances); err != nil {
		return err
	}
	if err := p.Send(string(domain.KindCreate), nil); err != nil {
		return err
	}
	created, err := p.Await(domain.EventCreated, domain.EventError)
	if err != nil {
		return err
	}
	var notice domain.Notice
	if err := json.Unmarshal(created.Payload, &notice); err != nil {
		return err
	}
	target := domain.TargetCommand{ID: notice.ID}
	steps := []struct {
		kind  domain.Kind
		await string
	}{
		{domain.KindStart, domain.EventStarted},
		{domain.KindStop, domain.EventStopped},
		{domain.KindRemove, domain.EventRemoved},
	}
	for _, step := range steps {
		if err := p.Send(string(step.kind), target); err != nil {
			return err
		}
		env, err := p.Await(step.await, domain.EventError)
		if err != nil {
			return err
		}
		if env.Event == domain.EventError {
			return fmt.Errorf("%s refused: %s", step.kind, env.Payload)
		}
	}
	return nil
}

// RunChat joins under name and says hello.
func RunChat(p *Probe, name string) error {
	if _, err := p.Await(domain.EventChat); err != nil {
		return err
	}
	if err := p.Send(string(domain.KindUserJoin), name); err != nil {
		return err
	}
	if _, err := p.Await(domain.EventUsersList); err != nil {
		return err
	}
	return p.Send(string(domain.KindChat), "hello from "+name)
}

// Render prints the received envelopes as a table.
func Render(w io.Writer, received []Received, colours bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"After", "Event", "Payload"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, r := range received {
		name := r.Event
		if colours {
			name = eventStyle(r.Event).Render(name)
		}
		table.Append([]string{r.After.String(), name, r.Payload})
	}
	table.Render()
}

func eventStyle(event string) color.Style {
	switch event {
	case domain.EventError:
		return color.New(color.FgRed, color.OpBold)
	case domain.EventProcessing:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
