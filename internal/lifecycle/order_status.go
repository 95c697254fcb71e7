package lifecycle

import (
	"errors"
	"strings"
)

// OrderStatus is the persisted value of orders.status.
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "outForDelivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// ActorRole is the role of whoever is asking for a transition.
// The values match users.role.
type ActorRole string

const (
	RoleCustomer   ActorRole = "customer"
	RoleOwner      ActorRole = "owner"
	RoleCourier    ActorRole = "courier"
	RoleSupervisor ActorRole = "supervisor"
	RoleAdmin      ActorRole = "admin"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderFinalized    = errors.New("order is already delivered or cancelled")
	ErrReasonRequired    = errors.New("a cancellation reason is required")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// forwardChain is the happy path, in order.
var forwardChain = []OrderStatus{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
}

// Move is one allowed edge out of a status. Back marks the "undo" moves that
// only the restaurant's own operator gets.
type Move struct {
	To   OrderStatus `json:"to"`
	Back bool        `json:"back"`
}

// ParseOrderStatus maps a client string onto a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.TrimSpace(s))
	if st == StatusCancelled || indexOf(st) >= 0 {
		return st, nil
	}
	return "", ErrUnknownStatus
}

// IsTerminal reports whether no transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func indexOf(s OrderStatus) int {
	for i, st := range forwardChain {
		if st == s {
			return i
		}
	}
	return -1
}

func next(s OrderStatus) (OrderStatus, bool) {
	i := indexOf(s)
	if i < 0 || i+1 >= len(forwardChain) {
		return "", false
	}
	return forwardChain[i+1], true
}

func prev(s OrderStatus) (OrderStatus, bool) {
	i := indexOf(s)
	if i <= 0 {
		return "", false
	}
	return forwardChain[i-1], true
}

// NextStates returns every move role may make from current.
// Terminal statuses have none.
func NextStates(current OrderStatus, role ActorRole) []Move {
	if current.IsTerminal() || indexOf(current) < 0 {
		return nil
	}

	var moves []Move
	fwd, hasFwd := next(current)

	switch role {
	case RoleOwner:
		if hasFwd {
			moves = append(moves, Move{To: fwd})
		}
		// one step back down the chain; pending has no predecessor
		if back, ok := prev(current); ok {
			moves = append(moves, Move{To: back, Back: true})
		}
		moves = append(moves, Move{To: StatusCancelled})

	case RoleCourier:
		if current == StatusReady || current == StatusOutForDelivery {
			moves = append(moves, Move{To: fwd})
		}

	case RoleSupervisor, RoleAdmin:
		if hasFwd {
			moves = append(moves, Move{To: fwd})
		}
		moves = append(moves, Move{To: StatusCancelled})

	case RoleCustomer:
		if current == StatusPending {
			moves = append(moves, Move{To: StatusCancelled})
		}
	}

	return moves
}

// Validate checks a single requested transition and returns the matching move.
func Validate(current, target OrderStatus, role ActorRole, reason string) (Move, error) {
	if current.IsTerminal() {
		return Move{}, ErrOrderFinalized
	}

	for _, m := range NextStates(current, role) {
		if m.To != target {
			continue
		}
		if target == StatusCancelled && strings.TrimSpace(reason) == "" {
			return Move{}, ErrReasonRequired
		}
		return m, nil
	}

	return Move{}, ErrInvalidTransition
}
