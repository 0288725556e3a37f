// Package lifecycle holds the booking status transition table. It is the
// only place that decides whether an action is legal from a given status.
package lifecycle

import (
	"unistay/pkg/model"
)

type Action string

const (
	ActionCreate   Action = "create"
	ActionMockPay  Action = "mock-pay"
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionPay      Action = "pay"
	ActionCheckIn  Action = "checkin"
	ActionComplete Action = "complete"
	ActionForceSet Action = "force-set"
	ActionDelete   Action = "delete"
)

type Actor string

const (
	ActorStudent Actor = "student"
	ActorOwner   Actor = "owner"
	ActorAdmin   Actor = "admin"
)

// OccupancyEffect is the change a transition applies to the property's
// occupied room counter.
type OccupancyEffect int

const (
	OccupancyNone      OccupancyEffect = 0
	OccupancyIncrement OccupancyEffect = 1
	OccupancyDecrement OccupancyEffect = -1
)

type RefundPolicy int

const (
	RefundNone RefundPolicy = iota
	// RefundFull returns everything paid.
	RefundFull
	// RefundTiered applies the cancellation tiers in Refund.
	RefundTiered
)

type Rule struct {
	Action Action
	Actor  Actor
	From   []model.BookingStatus
	To     model.BookingStatus
	Refund RefundPolicy
}

// Transition is the outcome of a legal action.
type Transition struct {
	Action    Action
	From      model.BookingStatus
	To        model.BookingStatus
	Occupancy OccupancyEffect
	Refund    RefundPolicy
}

// Changed reports whether the transition moves the booking to another status.
func (t Transition) Changed() bool {
	return t.From != t.To
}

var defaultRules = []Rule{
	{Action: ActionAccept, Actor: ActorOwner, From: []model.BookingStatus{model.BookingPending}, To: model.BookingConfirmed},
	{Action: ActionReject, Actor: ActorOwner, From: []model.BookingStatus{model.BookingPending, model.BookingConfirmed}, To: model.BookingRejected, Refund: RefundFull},
	// A student cancelling ends in cancelled, never rejected. Only the owner
	// rejects.
	{Action: ActionCancel, Actor: ActorStudent, From: []model.BookingStatus{model.BookingPending, model.BookingPaid}, To: model.BookingCancelled, Refund: RefundTiered},
	{Action: ActionPay, Actor: ActorStudent, From: []model.BookingStatus{model.BookingConfirmed}, To: model.BookingPaid},
	{Action: ActionCheckIn, Actor: ActorOwner, From: []model.BookingStatus{model.BookingConfirmed, model.BookingPaid}, To: model.BookingCheckedIn},
	{Action: ActionComplete, Actor: ActorOwner, From: []model.BookingStatus{model.BookingCheckedIn}, To: model.BookingCompleted},
}

type Machine struct {
	rules map[Action]Rule
}

func NewMachine() *Machine {
	m := &Machine{rules: make(map[Action]Rule, len(defaultRules))}
	for _, rule := range defaultRules {
		m.rules[rule.Action] = rule
	}
	return m
}

// Initial returns the status a new booking starts in.
func (m *Machine) Initial(mockPaid bool) Transition {
	if mockPaid {
		return Transition{Action: ActionMockPay, To: model.BookingPaid, Occupancy: OccupancyIncrement}
	}
	return Transition{Action: ActionCreate, To: model.BookingPending, Occupancy: OccupancyIncrement}
}

// Next validates action by actor against the current status.
func (m *Machine) Next(current model.BookingStatus, action Action, actor Actor) (Transition, error) {
	rule, ok := m.rules[action]
	if !ok {
		return Transition{}, &UnknownActionError{Action: action}
	}
	if rule.Actor != actor {
		return Transition{}, &ForbiddenActorError{Action: action, Actor: actor, Required: rule.Actor}
	}
	if !contains(rule.From, current) {
		return Transition{}, &InvalidTransitionError{Action: action, Current: current, AllowedFrom: rule.From}
	}
	return Transition{
		Action:    action,
		From:      current,
		To:        rule.To,
		Occupancy: occupancyDelta(current, rule.To),
		Refund:    rule.Refund,
	}, nil
}

// Force is the admin override: any status to any status. The occupancy
// effect follows active set membership on both sides.
func (m *Machine) Force(current, target model.BookingStatus) (Transition, error) {
	if !target.Valid() {
		return Transition{}, &InvalidTransitionError{Action: ActionForceSet, Current: current, AllowedFrom: model.BookingStatuses}
	}
	return Transition{
		Action:    ActionForceSet,
		From:      current,
		To:        target,
		Occupancy: occupancyDelta(current, target),
	}, nil
}

// Remove is the admin delete.
func (m *Machine) Remove(current model.BookingStatus) Transition {
	t := Transition{Action: ActionDelete, From: current, To: current}
	if current.IsActive() {
		t.Occupancy = OccupancyDecrement
	}
	return t
}

// AllowedFrom returns the source statuses for action, or nil when unknown.
func (m *Machine) AllowedFrom(action Action) []model.BookingStatus {
	rule, ok := m.rules[action]
	if !ok {
		return nil
	}
	out := make([]model.BookingStatus, len(rule.From))
	copy(out, rule.From)
	return out
}

func (m *Machine) Rules() []Rule {
	out := make([]Rule, 0, len(defaultRules))
	for _, rule := range defaultRules {
		out = append(out, m.rules[rule.Action])
	}
	return out
}

func occupancyDelta(from, to model.BookingStatus) OccupancyEffect {
	switch {
	case from.IsActive() && !to.IsActive():
		return OccupancyDecrement
	case !from.IsActive() && to.IsActive():
		return OccupancyIncrement
	}
	return OccupancyNone
}

func contains(statuses []model.BookingStatus, s model.BookingStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}
