package casino

import (
	"fmt"
	"strconv"
	"strings"

	"confidential_casino/internal/domain"
)

const PayoutMarker = "Payout handle:"

var resultMarkers = map[domain.GameKind][]string{
	domain.GameKindCoinflip: {"Random handle:"},
	domain.GameKindRoulette: {"Spin handle:"},
	domain.GameKindCrash:    {"Crash point handle:"},
	domain.GameKindSlot:     {"Reel1 handle:", "Reel2 handle:", "Reel3 handle:"},
}

// ResultSlots is the number of result handles a kind produces (1 or 3).
func ResultSlots(kind domain.GameKind) int {
	return len(resultMarkers[kind])
}

// ResultMarkers returns the log labels of a kind's result handles, in slot order.
func ResultMarkers(kind domain.GameKind) []string {
	return append([]string(nil), resultMarkers[kind]...)
}

// Handles are the opaque references produced by one wager. Absent entries are nil.
type Handles struct {
	Payout  *domain.Handle
	Results []*domain.Handle
}

// Complete reports whether the payout and every result handle are present.
func (h Handles) Complete() bool {
	if h.Payout == nil {
		return false
	}
	for _, r := range h.Results {
		if r == nil {
			return false
		}
	}
	return true
}

// Equal compares presence and value slot by slot.
func (h Handles) Equal(o Handles) bool {
	if !handleEq(h.Payout, o.Payout) || len(h.Results) != len(o.Results) {
		return false
	}
	for i := range h.Results {
		if !handleEq(h.Results[i], o.Results[i]) {
			return false
		}
	}
	return true
}

func handleEq(a, b *domain.Handle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ExtractHandles scans program log lines for the kind's handle markers.
// Lines look like "Program log: Spin handle: 1234". A missing marker is
// not an error; a marker followed by anything but a base-10 u128 is.
func ExtractHandles(kind domain.GameKind, lines []string) (Handles, error) {
	markers, ok := resultMarkers[kind]
	if !ok {
		return Handles{}, fmt.Errorf("casino: unknown game kind %q", kind)
	}

	out := Handles{Results: make([]*domain.Handle, len(markers))}
	for i, line := range lines {
		if out.Payout == nil {
			h, found, err := parseMarker(line, PayoutMarker)
			if err != nil {
				return Handles{}, fmt.Errorf("log line %d: %w", i, err)
			}
			if found {
				out.Payout = &h
				continue
			}
		}
		for slot, m := range markers {
			if out.Results[slot] != nil {
				continue
			}
			h, found, err := parseMarker(line, m)
			if err != nil {
				return Handles{}, fmt.Errorf("log line %d: %w", i, err)
			}
			if found {
				out.Results[slot] = &h
				break
			}
		}
	}
	return out, nil
}

func parseMarker(line, marker string) (domain.Handle, bool, error) {
	idx := strings.Index(line, marker)
	if idx < 0 {
		return domain.Handle{}, false, nil
	}
	// "Reel1 handle:" must not match inside e.g. "XReel1 handle:"
	if idx > 0 && line[idx-1] != ' ' {
		return domain.Handle{}, false, nil
	}
	fields := strings.Fields(line[idx+len(marker):])
	if len(fields) == 0 {
		return domain.Handle{}, true, fmt.Errorf("%w: %q has no value", domain.ErrMalformedHandle, strings.TrimSpace(marker))
	}
	h, err := domain.ParseHandle(fields[0])
	if err != nil {
		return domain.Handle{}, true, err
	}
	return h, true, nil
}

// ParseClaimedAmount reads "Claimed <n> lamports!" from claim logs.
func ParseClaimedAmount(lines []string) (uint64, bool) {
	const prefix = "Claimed "
	for _, line := range lines {
		idx := strings.Index(line, prefix)
		if idx < 0 {
			continue
		}
		rest := line[idx+len(prefix):]
		end := strings.Index(rest, " lamports")
		if end < 0 {
			continue
		}
		n, err := strconv.ParseUint(rest[:end], 10, 64)
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}
