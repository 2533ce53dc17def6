package event

import (
	"dispatch-lab/domain"
	"time"
)

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	PIDTrackerType          Type = "PID_TRACKER"
	CommandHandledType      Type = "COMMAND_HANDLED"
	CensorshipHit           Type = "CENSORSHIP_HIT"
	MessageSentType         Type = "MESSAGE_SENT"
)

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type ProcessTracker struct {
	PID     domain.PID
	Cpu     float64
	Ram     uint64
	Threads int32
}

// CommandHandled is emitted once the router is done with an inbound message.
type CommandHandled struct {
	Hub        string
	Event      string
	ConnID     string
	ReceivedAt time.Time
	Failed     bool
}

type Censored struct {
	Word string
}

type MessageSent struct {
	Hub        string
	Recipients int
}
