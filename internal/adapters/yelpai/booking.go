package yelpai

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"social_dining/internal/domain"
)

// BookReservation simulates an agent negotiating a table. No real reservation
// is made: after the configured delay it resolves to busy with probability
// busyProb, otherwise to booked with a short reference. A context cancelled
// during the delay also yields busy.
func (c *Client) BookReservation(ctx context.Context, venue, at string, partySize int) domain.BookingResult {
	if !sleepCtx(ctx, c.bookingDelay) {
		log.Warn().Err(ctx.Err()).Str("venue", venue).Msg("simulated booking: cancelled")
		return domain.BookingResult{
			Status:  domain.BookingBusy,
			Message: fmt.Sprintf("I could not reach %s before the request was cancelled. Recommend calling them directly.", venue),
		}
	}

	if c.rnd() < c.busyProb {
		log.Info().Str("venue", venue).Str("time", at).Msg("simulated booking: venue busy")
		return domain.BookingResult{
			Status:  domain.BookingBusy,
			Message: fmt.Sprintf("I called %s, but they are fully booked at %s. Recommend calling them directly.", venue, at),
		}
	}

	ref := "YELP-" + strings.ToUpper(uuid.NewString()[:4])
	log.Info().Str("venue", venue).Str("reference", ref).Int("party_size", partySize).Msg("simulated booking: confirmed")
	return domain.BookingResult{
		Status:    domain.BookingBooked,
		Reference: ref,
		Message:   fmt.Sprintf("Confirmed! Table for %d at %s referenced under #%s.", partySize, venue, ref),
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// defaultRand returns a float in [0,1) from crypto/rand.
func defaultRand() float64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 1 // treat as "not busy"
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}
