package order

import (
	"errors"
	"fmt"
)

type Status int

const (
	Created Status = iota
	Working
	Filled
	Rejected
	Expired
	Cancelled
)

var statusNames = map[Status]string{
	Created:   "CREATED",
	Working:   "WORKING",
	Filled:    "FILLED",
	Rejected:  "REJECTED",
	Expired:   "EXPIRED",
	Cancelled: "CANCELLED",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid order status transition")

// transitions lists every allowed edge. Terminal states have no entry.
var transitions = map[Status][]Status{
	Created: {Working, Rejected},
	Working: {Filled, Rejected, Expired, Cancelled},
}

func (s Status) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
