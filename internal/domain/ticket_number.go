package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	// TicketNumberPrefix renders as the leading segment of every ticket number.
	TicketNumberPrefix = "TICK"

	minTicketYear       = 2020
	maxTicketSequential = 99999
)

var ticketNumberPattern = regexp.MustCompile(`^` + TicketNumberPrefix + `-(\d{4})-(\d{5})$`)

// TicketNumber identifies a ticket as PREFIX-YYYY-NNNNN.
type TicketNumber struct {
	year       int
	sequential int
}

// NewTicketNumber validates year against [2020, current year + 1] and sequential against [1, 99999].
func NewTicketNumber(year, sequential int, clock Clock) (TicketNumber, error) {
	const op = "ticket_number.new"
	maxYear := clockOrSystem(clock).Now().UTC().Year() + 1
	if year < minTicketYear || year > maxYear {
		return TicketNumber{}, InvalidArgument(op, "year", fmt.Sprintf("year must be between %d and %d", minTicketYear, maxYear))
	}
	if sequential < 1 || sequential > maxTicketSequential {
		return TicketNumber{}, InvalidArgument(op, "sequential", "sequential must be between 1 and 99999")
	}
	return TicketNumber{year: year, sequential: sequential}, nil
}

// ParseTicketNumber parses the rendered form produced by String.
func ParseTicketNumber(raw string, clock Clock) (TicketNumber, error) {
	const op = "ticket_number.parse"
	if raw == "" {
		return TicketNumber{}, NullArgument(op, "ticket_number")
	}
	m := ticketNumberPattern.FindStringSubmatch(raw)
	if m == nil {
		return TicketNumber{}, InvalidArgument(op, "ticket_number", "ticket number must match "+TicketNumberPrefix+"-YYYY-NNNNN")
	}
	year, _ := strconv.Atoi(m[1])
	seq, _ := strconv.Atoi(m[2])
	return NewTicketNumber(year, seq, clock)
}

// Year returns the four-digit year component.
func (n TicketNumber) Year() int { return n.year }

// Sequential returns the counter component.
func (n TicketNumber) Sequential() int { return n.sequential }

// IsZero reports whether n was never constructed.
func (n TicketNumber) IsZero() bool { return n.year == 0 && n.sequential == 0 }

func (n TicketNumber) String() string {
	return fmt.Sprintf("%s-%04d-%05d", TicketNumberPrefix, n.year, n.sequential)
}
