package workers

import (
	"context"
	"dispatch-lab/domain/event"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically reports the capacity and length of
// internal queues. Reading len and cap is non-blocking, and losing a
// sample now and then is fine since they are periodic.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	telemetryChan  chan<- event.Event
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger,
	channels []NamedChannel, telemetryChan chan<- event.Event,
	metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log: log, channels: channels,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w ChannelCapacityWorker) sample() {
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		if !event.Emit(w.telemetryChan, toCapacityEvent(nc.Name, v.Cap(), v.Len())) {
			w.log.Debug("Telemetry event lost", "name", nc.Name)
		}
	}
}

func toCapacityEvent(name string, capacity, length int) event.Event {
	return event.New(event.ChannelCapacityType, event.ChannelCapacity{
		ChannelName: name,
		Capacity:    capacity,
		Length:      length,
	})
}
