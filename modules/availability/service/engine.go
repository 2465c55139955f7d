package service

import (
	"sort"
	"time"

	"meetbook/core/constants"
)

// Engine computes candidate slots for a date window. It is pure: all state
// (rules, blackouts, occupancy) is passed in, and Now is injectable for
// tests.
type Engine struct {
	Now     func() time.Time
	MinLead time.Duration
}

func NewEngine() *Engine {
	return &Engine{
		Now:     time.Now,
		MinLead: constants.MinLeadTime,
	}
}

// Slot is one candidate on the grid. Start/End are instants; availability
// is computed in absolute time regardless of presentation zone.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// Interval is an occupied absolute-time range (active hold or confirmed
// booking), half-open.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// CivilDate is a wall-clock date with no zone attached.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

func (d CivilDate) Before(o CivilDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d CivilDate) After(o CivilDate) bool {
	return o.Before(d)
}

// Next returns the following calendar day. Adding a day in civil space and
// resolving against the zone afterwards is what keeps DST boundaries honest.
func (d CivilDate) Next() CivilDate {
	t := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return CivilDateOf(t)
}

// RuleWindow is a weekly availability rule reduced to what the engine
// needs: weekday, a wall-clock window in minutes from midnight, and an
// optional effective civil-date range.
type RuleWindow struct {
	Weekday        time.Weekday
	StartMinute    int
	EndMinute      int
	EffectiveFrom  *CivilDate
	EffectiveUntil *CivilDate // exclusive
}

func (r RuleWindow) appliesTo(d CivilDate, weekday time.Weekday) bool {
	if r.Weekday != weekday {
		return false
	}
	if r.StartMinute >= r.EndMinute {
		return false
	}
	if r.EffectiveFrom != nil && d.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && !d.Before(*r.EffectiveUntil) {
		return false
	}
	return true
}

// BlackoutWindow is a blackout reduced to engine terms. A nil minute pair
// blocks the whole day. Recurring blackouts match month+day only.
type BlackoutWindow struct {
	Date        CivilDate
	StartMinute *int
	EndMinute   *int
	Recurring   bool
}

func (b BlackoutWindow) matchesDate(d CivilDate) bool {
	if b.Recurring {
		return b.Date.Month == d.Month && b.Date.Day == d.Day
	}
	return b.Date == d
}

func (b BlackoutWindow) fullDay() bool {
	return b.StartMinute == nil || b.EndMinute == nil
}

// ComputeInput bundles everything a slot computation needs.
type ComputeInput struct {
	DurationMinutes     int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
	HostZone            *time.Location
	StartDate           CivilDate
	EndDate             CivilDate // inclusive
	Rules               []RuleWindow
	Blackouts           []BlackoutWindow
	Occupied            []Interval
}

// Compute walks the window day by day in the host zone, expands rules into
// duration-stepped candidates, and marks each candidate available or not.
// The result is sorted by start and deduplicated.
func (e *Engine) Compute(in ComputeInput) []Slot {
	if in.DurationMinutes <= 0 || in.HostZone == nil || in.EndDate.Before(in.StartDate) {
		return nil
	}

	cutoff := e.Now().Add(e.MinLead)
	duration := time.Duration(in.DurationMinutes) * time.Minute

	var slots []Slot
	seen := make(map[time.Time]bool)

	for d := in.StartDate; !d.After(in.EndDate); d = d.Next() {
		weekday := wallTime(d, 12*60, in.HostZone).Weekday()
		for _, rule := range in.Rules {
			if !rule.appliesTo(d, weekday) {
				continue
			}
			for _, cand := range e.candidates(d, rule, duration, in.HostZone) {
				if seen[cand.Start] {
					continue
				}
				seen[cand.Start] = true
				cand.Available = e.available(cand, d, cutoff, in)
				slots = append(slots, cand)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

// candidates steps through one rule window on day d. Stepping is a fixed
// number of minutes on the absolute timeline; each step is kept only while
// its wall-clock representation stays inside the rule window, which is what
// makes DST gaps drop out and DST repeats appear twice.
func (e *Engine) candidates(d CivilDate, rule RuleWindow, duration time.Duration, zone *time.Location) []Slot {
	var out []Slot

	start := wallTime(d, rule.StartMinute, zone)
	// A start inside a spring-forward gap normalizes past the gap. Stepping
	// is purely absolute; candidates are kept only when both wall-clock
	// endpoints land back inside the rule window, so gap slots drop out and
	// fall-back repeats show up twice. The walk terminates when the wall
	// date leaves d, which absolute stepping guarantees.
	for cur := start; ; cur = cur.Add(duration) {
		end := cur.Add(duration)
		startMin, startDay := wallMinute(cur, zone)
		endMin, endDay := wallMinute(end, zone)
		if startDay != d {
			break
		}
		if endDay != d {
			if endMin == 0 && endDay == d.Next() {
				endMin = 24 * 60 // slot ending exactly at midnight
			} else {
				continue
			}
		}
		if startMin < rule.StartMinute || endMin < rule.StartMinute || endMin > rule.EndMinute {
			continue
		}
		out = append(out, Slot{Start: cur, End: end})
	}
	return out
}

func (e *Engine) available(s Slot, d CivilDate, cutoff time.Time, in ComputeInput) bool {
	// Strictly later than now + lead; equality is not bookable.
	if !s.Start.After(cutoff) {
		return false
	}

	slotIv := Interval{Start: s.Start, End: s.End}
	for _, b := range in.Blackouts {
		if !b.matchesDate(d) {
			continue
		}
		if b.fullDay() {
			return false
		}
		// A partial blackout whose start >= end is malformed and ignored.
		if *b.StartMinute >= *b.EndMinute {
			continue
		}
		blocked := Interval{
			Start: wallTime(d, *b.StartMinute, in.HostZone),
			End:   wallTime(d, *b.EndMinute, in.HostZone),
		}
		if slotIv.Overlaps(blocked) {
			return false
		}
	}

	buffered := Interval{
		Start: s.Start.Add(-time.Duration(in.BufferBeforeMinutes) * time.Minute),
		End:   s.End.Add(time.Duration(in.BufferAfterMinutes) * time.Minute),
	}
	for _, occ := range in.Occupied {
		if buffered.Overlaps(occ) {
			return false
		}
	}
	return true
}

// wallTime resolves a wall-clock minute of day d in zone. Times inside a
// DST gap normalize forward per time.Date semantics.
func wallTime(d CivilDate, minuteOfDay int, zone *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, minuteOfDay, 0, 0, zone)
}

// wallMinute reports the minute-of-day and civil date of an instant in zone.
func wallMinute(t time.Time, zone *time.Location) (int, CivilDate) {
	local := t.In(zone)
	return local.Hour()*60 + local.Minute(), CivilDateOf(local)
}
