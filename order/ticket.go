package order

import "sync"

// FirstTicket is where a new sequence starts, keeping tickets six digits
// wide for the first 900k orders.
const FirstTicket Ticket = 100001

// TicketSequence hands out strictly increasing tickets.
type TicketSequence struct {
	mu   sync.Mutex
	next Ticket
}

func NewTicketSequence(start Ticket) *TicketSequence {
	if start <= 0 {
		start = FirstTicket
	}
	return &TicketSequence{next: start}
}

func (s *TicketSequence) Next() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.next
	s.next++
	return t
}
