package lifecycle

import (
	"fmt"
	"strings"

	"unistay/pkg/model"
)

type InvalidTransitionError struct {
	Action      Action
	Current     model.BookingStatus
	AllowedFrom []model.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a booking in status %q (allowed from: %s)", e.Action, e.Current, joinStatuses(e.AllowedFrom))
}

func (e *InvalidTransitionError) AllowedStrings() []string {
	out := make([]string, len(e.AllowedFrom))
	for i, s := range e.AllowedFrom {
		out[i] = string(s)
	}
	return out
}

type ForbiddenActorError struct {
	Action   Action
	Actor    Actor
	Required Actor
}

func (e *ForbiddenActorError) Error() string {
	return fmt.Sprintf("%s may not %s a booking (requires %s)", e.Actor, e.Action, e.Required)
}

type UnknownActionError struct {
	Action Action
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown booking action %q", e.Action)
}

func joinStatuses(statuses []model.BookingStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
