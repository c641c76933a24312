package domain

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
)

// MaxDiaryDays bounds a single diary request.
const MaxDiaryDays = 93

type DiaryEntry struct {
	BookingID   string        `json:"booking_id"`
	Reference   string        `json:"reference"`
	Counterpart string        `json:"counterpart"`
	Session     SessionType   `json:"session"`
	Start       Clock         `json:"start"`
	End         Clock         `json:"end"`
	Status      BookingStatus `json:"status"`
}

type DiaryDay struct {
	Date    civil.Date   `json:"date"`
	Weekday string       `json:"weekday"`
	Outside bool         `json:"outside"`
	Entries []DiaryEntry `json:"entries"`
}

// DateRange enumerates every date from from to to inclusive.
func DateRange(from, to civil.Date) ([]civil.Date, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: diary range needs both dates", ErrInvalidInput)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidInput, to, from)
	}
	n := to.DaysSince(from) + 1
	if n > MaxDiaryDays {
		return nil, fmt.Errorf("%w: diary range is limited to %d days", ErrInvalidInput, MaxDiaryDays)
	}
	out := make([]civil.Date, 0, n)
	for d := from; !d.After(to); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out, nil
}

// MonthGrid returns the Monday-to-Sunday range of whole weeks covering month.
func MonthGrid(year int, month time.Month) (civil.Date, civil.Date) {
	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
	from := first.AddDays(-((int(Weekday(first)) + 6) % 7))
	to := last.AddDays((7 - int(Weekday(last))) % 7)
	return from, to
}

// BuildDiary lays bookings out over the range, one day per date. Cancelled
// bookings are left out; entries within a day are ordered by start time.
func BuildDiary(from, to civil.Date, bookings []Booking, perspective Role) ([]DiaryDay, error) {
	dates, err := DateRange(from, to)
	if err != nil {
		return nil, err
	}

	index := make(map[civil.Date]int, len(dates))
	days := make([]DiaryDay, len(dates))
	for i, d := range dates {
		index[d] = i
		days[i] = DiaryDay{Date: d, Weekday: Weekday(d).String(), Entries: []DiaryEntry{}}
	}

	for _, b := range bookings {
		if b.Status == BookingCancelled {
			continue
		}
		counterpart := b.CandidateName
		if perspective == RoleCandidate {
			counterpart = b.ClientName
		}
		for _, bd := range b.Days {
			i, ok := index[bd.Date]
			if !ok {
				continue
			}
			days[i].Entries = append(days[i].Entries, DiaryEntry{
				BookingID:   b.ID,
				Reference:   b.Reference,
				Counterpart: counterpart,
				Session:     bd.Session,
				Start:       bd.Start,
				End:         bd.End,
				Status:      b.Status,
			})
		}
	}

	for i := range days {
		entries := days[i].Entries
		sort.SliceStable(entries, func(a, b int) bool {
			if entries[a].Start != entries[b].Start {
				return entries[a].Start < entries[b].Start
			}
			return entries[a].BookingID < entries[b].BookingID
		})
	}
	return days, nil
}

// MarkOutside flags days that fall outside month, for month grids.
func MarkOutside(days []DiaryDay, month time.Month) {
	for i := range days {
		days[i].Outside = days[i].Date.Month != month
	}
}

// Weeks chunks days into rows of seven.
func Weeks(days []DiaryDay) [][]DiaryDay {
	var out [][]DiaryDay
	for len(days) > 0 {
		n := min(7, len(days))
		out = append(out, days[:n])
		days = days[n:]
	}
	return out
}
