package schedule

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewFixedInterval(t *testing.T) {
	t.Parallel()

	p, err := NewFixedInterval(7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Type != PolicyFixedInterval {
		t.Errorf("Expected type %q, got %q", PolicyFixedInterval, p.Type)
	}
	if p.Days != 7 {
		t.Errorf("Expected days 7, got %d", p.Days)
	}

	for _, days := range []int{0, -3} {
		_, err := NewFixedInterval(days)
		if !errors.Is(err, ErrInvalidPolicyConfig) {
			t.Errorf("Expected ErrInvalidPolicyConfig for days=%d, got %v", days, err)
		}
	}
}

func TestNewDeadlineDistribution(t *testing.T) {
	t.Parallel()

	today := date(2025, 1, 1)
	deadline := date(2025, 3, 1)

	p, err := NewDeadlineDistribution(deadline, 10, true, today)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Type != PolicyDeadlineDistribution {
		t.Errorf("Expected type %q, got %q", PolicyDeadlineDistribution, p.Type)
	}
	if !p.Deadline.Equal(deadline) {
		t.Errorf("Expected deadline %v, got %v", deadline, p.Deadline)
	}
	if p.Total != 10 {
		t.Errorf("Expected total 10, got %d", p.Total)
	}
	if !p.Freeze {
		t.Error("Expected freeze to be set")
	}

	// Deadline must be strictly in the future.
	if _, err := NewDeadlineDistribution(today, 10, false, today); !errors.Is(err, ErrInvalidPolicyConfig) {
		t.Errorf("Expected ErrInvalidPolicyConfig for deadline == today, got %v", err)
	}
	if _, err := NewDeadlineDistribution(date(2024, 12, 1), 10, false, today); !errors.Is(err, ErrInvalidPolicyConfig) {
		t.Errorf("Expected ErrInvalidPolicyConfig for past deadline, got %v", err)
	}
	if _, err := NewDeadlineDistribution(deadline, 0, false, today); !errors.Is(err, ErrInvalidPolicyConfig) {
		t.Errorf("Expected ErrInvalidPolicyConfig for total=0, got %v", err)
	}
}

func TestNewStateBased(t *testing.T) {
	t.Parallel()

	p, err := NewStateBased(3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p.Type != PolicyStateBased {
		t.Errorf("Expected type %q, got %q", PolicyStateBased, p.Type)
	}
	if p.CheckIntervalDays != 3 {
		t.Errorf("Expected check interval 3, got %d", p.CheckIntervalDays)
	}

	if _, err := NewStateBased(0); !errors.Is(err, ErrInvalidPolicyConfig) {
		t.Errorf("Expected ErrInvalidPolicyConfig for interval=0, got %v", err)
	}
}

func TestNextDueFixedInterval(t *testing.T) {
	t.Parallel()

	p, _ := NewFixedInterval(7)

	got := p.NextDue(date(2025, 1, 1), 0)
	want := date(2025, 1, 8)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// numCompleted has no effect on a fixed interval.
	if got := p.NextDue(date(2025, 1, 1), 50); !got.Equal(want) {
		t.Errorf("Expected %v regardless of completed count, got %v", want, got)
	}
}

func TestNextDueDeadlineDistribution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		deadline     time.Time
		total        int
		last         time.Time
		numCompleted int
		want         time.Time
	}{
		{
			name:     "even distribution",
			deadline: date(2025, 1, 31), total: 3,
			last: date(2025, 1, 1), numCompleted: 0,
			// 30 days / 3 remaining = 10 day interval
			want: date(2025, 1, 11),
		},
		{
			name:     "remaining budget shrinks interval",
			deadline: date(2025, 1, 31), total: 3,
			last: date(2025, 1, 11), numCompleted: 1,
			// 20 days / 2 remaining = 10 day interval
			want: date(2025, 1, 21),
		},
		{
			name:     "lagging completions compress the schedule",
			deadline: date(2025, 1, 31), total: 10,
			last: date(2025, 1, 25), numCompleted: 2,
			// 6 days / 8 remaining rounds down to 0, clamped to 1
			want: date(2025, 1, 26),
		},
		{
			name:     "budget exhausted",
			deadline: date(2025, 1, 31), total: 3,
			last: date(2025, 1, 21), numCompleted: 3,
			want: Never,
		},
		{
			name:     "past deadline",
			deadline: date(2025, 1, 31), total: 3,
			last: date(2025, 2, 1), numCompleted: 0,
			want: Never,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := Policy{
				Type:     PolicyDeadlineDistribution,
				Deadline: tc.deadline,
				Total:    tc.total,
			}
			got := p.NextDue(tc.last, tc.numCompleted)
			if !got.Equal(tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNextDueStateBased(t *testing.T) {
	t.Parallel()

	p, _ := NewStateBased(3)

	got := p.NextDue(date(2025, 1, 1), 0)
	want := date(2025, 1, 4)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNextDueUnknownType(t *testing.T) {
	t.Parallel()

	p := Policy{Type: "bogus"}
	if got := p.NextDue(date(2025, 1, 1), 0); !got.Equal(Never) {
		t.Errorf("Expected Never for unknown policy type, got %v", got)
	}
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	valid := []Policy{
		{Type: PolicyFixedInterval, Days: 1},
		{Type: PolicyDeadlineDistribution, Deadline: date(2025, 1, 31), Total: 5},
		{Type: PolicyStateBased, CheckIntervalDays: 2},
	}
	for _, p := range valid {
		if err := p.Validate(); err != nil {
			t.Errorf("Expected policy %+v to be valid, got %v", p, err)
		}
	}

	invalid := []Policy{
		{Type: PolicyFixedInterval, Days: 0},
		{Type: PolicyDeadlineDistribution, Total: 5},
		{Type: PolicyDeadlineDistribution, Deadline: date(2025, 1, 31), Total: 0},
		{Type: PolicyStateBased, CheckIntervalDays: 0},
		{Type: "bogus"},
	}
	for _, p := range invalid {
		if err := p.Validate(); !errors.Is(err, ErrInvalidPolicyConfig) {
			t.Errorf("Expected ErrInvalidPolicyConfig for policy %+v, got %v", p, err)
		}
	}

	// A stored deadline policy may legitimately be past its deadline.
	past := Policy{Type: PolicyDeadlineDistribution, Deadline: date(2020, 1, 1), Total: 5}
	if err := past.Validate(); err != nil {
		t.Errorf("Expected stored past-deadline policy to validate, got %v", err)
	}
}
