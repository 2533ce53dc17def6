package domain

// PID identifies the current process in heartbeat telemetry.
type PID int32
