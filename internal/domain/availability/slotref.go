package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SlotKindFixed = "fixed"
	SlotKindDate  = "date"

	fixedSlotPrefix = "fixed-"
)

// SlotRef identifies a bookable slot. It is either a FixedRef (a weekly
// template entry) or a DateRef (a concrete slot on one calendar date).
type SlotRef interface {
	Kind() string
	Range() TimeRange
	isSlotRef()
}

type FixedRef struct {
	Day       time.Weekday
	TimeRange TimeRange
}

func (FixedRef) Kind() string       { return SlotKindFixed }
func (r FixedRef) Range() TimeRange { return r.TimeRange }
func (FixedRef) isSlotRef()         {}

type DateRef struct {
	Date      string
	SlotID    int64
	TimeRange TimeRange
}

func (DateRef) Kind() string       { return SlotKindDate }
func (r DateRef) Range() TimeRange { return r.TimeRange }
func (DateRef) isSlotRef()         {}

// ParseSlotID converts the wire form of a slot id into a SlotRef for the given
// booking date. "fixed-09:00-11:00" names a weekly template entry; a bare
// number names a date slot, whose range is filled in when it is reserved.
func ParseSlotID(raw string, date time.Time) (SlotRef, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, fixedSlotPrefix) {
		r, err := ParseTimeRange(strings.TrimPrefix(raw, fixedSlotPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSlotID, raw)
		}
		return FixedRef{Day: date.Weekday(), TimeRange: r}, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlotID, raw)
	}
	return DateRef{Date: FormatDate(date), SlotID: id}, nil
}

// SlotID renders a SlotRef in its wire form.
func SlotID(ref SlotRef) string {
	switch r := ref.(type) {
	case FixedRef:
		return fixedSlotPrefix + r.TimeRange.String()
	case DateRef:
		return strconv.FormatInt(r.SlotID, 10)
	default:
		return ""
	}
}
