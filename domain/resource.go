// Package domain contains core concepts of the dispatch system.
// This file defines managed resources and their lifecycle rules.
package domain

import (
	"dispatch-lab/errors"
	"fmt"
)

type Status string

const (
	StatusStopped Status = "stopped"
	StatusStarted Status = "started"
)

// ManagedResource is a unit driven through CREATE, START, STOP and REMOVE.
// A removed resource leaves the store, "removed" is never a stored status.
type ManagedResource struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

func NewManagedResource(id string) ManagedResource {
	return ManagedResource{ID: id, Status: StatusStopped}
}

// ResourceByID is the predicate field used to look resources up in a store.
func ResourceByID(r ManagedResource) string {
	return r.ID
}

// Transition flips the status to the requested one.
// Asking for the current status is rejected, never silently applied.
func (r *ManagedResource) Transition(to Status) error {
	if r.Status == to {
		return fmt.Errorf("%w: %s is already %s", errors.ErrInvalidTransition, r.ID, to)
	}
	r.Status = to
	return nil
}
