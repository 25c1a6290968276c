package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"climate_guard/internal/models"
)

// fakeEventRepo is a minimal stub that satisfies the repository.EventRepo interface.
type fakeEventRepo struct {
	// captured inputs
	gotDevice string
	gotFrom   time.Time
	gotTo     time.Time
	gotType   string

	// configured outputs
	events []models.GuardEvent
	err    error

	listCalls int
	appended  []models.GuardEvent
	appendErr error
}

func (f *fakeEventRepo) List(_ context.Context, deviceID string, from, to time.Time, typ string) ([]models.GuardEvent, error) {
	f.listCalls++
	f.gotDevice = deviceID
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.err
}

func (f *fakeEventRepo) Append(_ context.Context, e models.GuardEvent) error {
	f.appended = append(f.appended, e)
	return f.appendErr
}

func fixedZone(name string, offsetSec int) *time.Location {
	return time.FixedZone(name, offsetSec)
}

func mustTimeIn(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

func Test_normalizeToUTC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want func(time.Time) bool
	}{
		{
			name: "zero time remains zero",
			in:   time.Time{},
			want: func(out time.Time) bool { return out.IsZero() },
		},
		{
			name: "non-UTC converted to UTC preserving instant",
			in:   mustTimeIn(fixedZone("UTC+3", 3*3600), 2026, time.August, 1, 12, 34, 56),
			want: func(out time.Time) bool {
				exp := time.Date(2026, time.August, 1, 9, 34, 56, 0, time.UTC) // 12:34:56+03 == 09:34:56Z
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
		{
			name: "already UTC stays UTC and same instant",
			in:   time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC),
			want: func(out time.Time) bool {
				exp := time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)
				return out.Location() == time.UTC && out.Equal(exp)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := normalizeToUTC(tc.in)
			if !tc.want(got) {
				t.Fatalf("unexpected normalizeToUTC result: %v (loc=%v)", got, got.Location())
			}
		})
	}
}

func Test_normalizeAndValidateFilter(t *testing.T) {
	t.Parallel()

	fromLocal := mustTimeIn(fixedZone("UTC+2", 2*3600), 2026, time.September, 10, 10, 0, 0)
	toUTC := time.Date(2026, time.September, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      LogFilter
		want    LogFilter
		wantErr error
	}{
		{
			name: "all zero/empty ok",
			in:   LogFilter{},
			want: LogFilter{},
		},
		{
			name: "from after to -> error",
			in: LogFilter{
				From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
				To:   time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC),
				Type: "start",
			},
			wantErr: errInvalidTimeRange,
		},
		{
			name: "normalize tz, type and device id",
			in: LogFilter{
				DeviceID: "  patio_heater ",
				From:     fromLocal,
				To:       toUTC,
				Type:     " start ",
			},
			want: LogFilter{
				DeviceID: "patio_heater",
				From:     time.Date(2026, time.September, 10, 8, 0, 0, 0, time.UTC), // 10:00 +02 -> 08:00Z
				To:       toUTC,
				Type:     "START",
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeAndValidateFilter(tc.in)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v; got %v", tc.wantErr, err)
			}
			if err != nil {
				return
			}
			if got.DeviceID != tc.want.DeviceID || got.Type != tc.want.Type {
				t.Fatalf("got %+v; want %+v", got, tc.want)
			}
			if !got.From.Equal(tc.want.From) || !got.To.Equal(tc.want.To) {
				t.Fatalf("times: got from=%v to=%v; want from=%v to=%v", got.From, got.To, tc.want.From, tc.want.To)
			}
		})
	}
}

func TestEventLogService_List_DelegatesNormalizedParams(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{
		events: []models.GuardEvent{
			{EventID: "1"},
		},
	}
	svc := NewEventLogService(frepo)

	fromLocal := mustTimeIn(fixedZone("UTC+5", 5*3600), 2026, time.October, 1, 10, 0, 0)
	toLocal := mustTimeIn(fixedZone("UTC-2", -2*3600), 2026, time.October, 1, 12, 30, 0)

	out, err := svc.List(context.Background(), LogFilter{
		DeviceID: "patio_heater",
		From:     fromLocal,
		To:       toLocal,
		Type:     "  blocked ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].EventID != "1" {
		t.Fatalf("unexpected events: %+v", out)
	}
	if frepo.listCalls != 1 {
		t.Fatalf("repo List should be called once, got %d", frepo.listCalls)
	}

	wantFrom := time.Date(2026, time.October, 1, 5, 0, 0, 0, time.UTC)  // 10:00 +05 -> 05:00Z
	wantTo := time.Date(2026, time.October, 1, 14, 30, 0, 0, time.UTC) // 12:30 -02 -> 14:30Z

	if !frepo.gotFrom.Equal(wantFrom) {
		t.Fatalf("repo gotFrom=%v; want %v", frepo.gotFrom, wantFrom)
	}
	if !frepo.gotTo.Equal(wantTo) {
		t.Fatalf("repo gotTo=%v; want %v", frepo.gotTo, wantTo)
	}
	if frepo.gotType != "BLOCKED" {
		t.Fatalf("repo gotType=%q; want %q", frepo.gotType, "BLOCKED")
	}
	if frepo.gotDevice != "patio_heater" {
		t.Fatalf("repo gotDevice=%q; want %q", frepo.gotDevice, "patio_heater")
	}
}

func TestEventLogService_List_ValidationError(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{}
	svc := NewEventLogService(frepo)

	_, err := svc.List(context.Background(), LogFilter{
		From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange; got %v", err)
	}
	if frepo.listCalls != 0 {
		t.Fatalf("repo should not be called on validation error, calls=%d", frepo.listCalls)
	}
}

func TestEventLogService_List_RepoErrorPropagation(t *testing.T) {
	t.Parallel()

	frepo := &fakeEventRepo{err: errors.New("db down")}
	svc := NewEventLogService(frepo)

	_, err := svc.List(context.Background(), LogFilter{})
	if !errors.Is(err, frepo.err) {
		t.Fatalf("expected repo error to propagate; got %v", err)
	}
	if frepo.listCalls != 1 {
		t.Fatalf("repo should be called once, calls=%d", frepo.listCalls)
	}
}
