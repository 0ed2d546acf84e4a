// Package ticket formats and allocates complaint ticket ids of the form CF-<year>-<seq>.
package ticket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"scms/backend/internal/config"
)

// Sequencer hands out the next per-year sequence number.
// storage.Storage satisfies it.
type Sequencer interface {
	NextTicketSeq(ctx context.Context, year int, prefix string) (int, error)
}

// Prefix returns "CF-<year>-".
func Prefix(year int) string {
	return fmt.Sprintf("%s-%d-", config.TicketPrefix, year)
}

// Format renders a ticket id with the sequence zero-padded to four digits.
// Sequences past 9999 keep all their digits.
func Format(year, seq int) string {
	return fmt.Sprintf("%s%0*d", Prefix(year), config.TicketSeqWidth, seq)
}

// Parse splits a ticket id into its year and sequence.
func Parse(id string) (year, seq int, err error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] != config.TicketPrefix {
		return 0, 0, fmt.Errorf("malformed ticket id %q", id)
	}
	if len(parts[1]) != 4 || len(parts[2]) < config.TicketSeqWidth {
		return 0, 0, fmt.Errorf("malformed ticket id %q", id)
	}
	if year, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("malformed ticket year in %q: %w", id, err)
	}
	if seq, err = strconv.Atoi(parts[2]); err != nil || seq <= 0 {
		return 0, 0, fmt.Errorf("malformed ticket sequence in %q", id)
	}
	return year, seq, nil
}

// Next allocates the next ticket id for year.
// Call it inside the transaction that inserts the complaint.
func Next(ctx context.Context, s Sequencer, year int) (string, error) {
	seq, err := s.NextTicketSeq(ctx, year, Prefix(year))
	if err != nil {
		return "", err
	}
	return Format(year, seq), nil
}
