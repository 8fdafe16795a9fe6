package compliance

import (
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/nudgekit/nudge/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return d
}

func testPolicy(t *testing.T, minimum, cutoff string, threshold int) Policy {
	t.Helper()
	return Policy{
		MinimumOSVersion:       minimum,
		CutoffDate:             date(t, cutoff),
		DualCloseThresholdDays: intPtr(threshold),
	}
}

func TestDaysUntilCutoff_IsDayGranular(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-01T23:59:00Z"), CurrentOSVersion: "13.2.1"}
	policy := testPolicy(t, "14.0", "2024-01-02T00:01:00Z", 3)

	days, err := DaysUntilCutoff(fact, policy)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestDaysUntilCutoff_Direction(t *testing.T) {
	tests := []struct {
		name    string
		current string
		cutoff  string
		want    int
	}{
		{"same day", "2024-01-02T08:00:00Z", "2024-01-02T18:00:00Z", 0},
		{"future", "2024-01-01T12:00:00Z", "2024-01-11T00:00:00Z", 10},
		{"past", "2024-01-11T00:00:00Z", "2024-01-01T23:59:59Z", -10},
		{"across year", "2023-12-31T23:00:00Z", "2024-01-01T01:00:00Z", 1},
		{"leap day", "2024-02-28T00:00:00Z", "2024-03-01T00:00:00Z", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := Fact{CurrentDate: date(t, tt.current), CurrentOSVersion: "13.0"}
			days, err := DaysUntilCutoff(fact, testPolicy(t, "13.0", tt.cutoff, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, days)
		})
	}
}

func TestDaysUntilCutoff_AcrossDSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 is 23 hours long in New York.
	fact := Fact{CurrentDate: time.Date(2024, 3, 9, 23, 30, 0, 0, ny), CurrentOSVersion: "13.0"}
	policy := Policy{
		MinimumOSVersion:       "14.0",
		CutoffDate:             time.Date(2024, 3, 11, 0, 15, 0, 0, ny),
		DualCloseThresholdDays: intPtr(0),
	}

	days, err := DaysUntilCutoff(fact, policy)
	require.NoError(t, err)
	assert.Equal(t, 2, days)
}

func TestDaysUntilCutoff_UsesCurrentDateLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2024-01-01T20:00Z is already 2024-01-02 in Tokyo.
	fact := Fact{CurrentDate: date(t, "2024-01-01T12:00:00Z").In(tokyo), CurrentOSVersion: "13.0"}
	policy := testPolicy(t, "13.0", "2024-01-01T20:00:00Z", 0)

	days, err := DaysUntilCutoff(fact, policy)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestIsPastCutoff_UsesFullTimestamp(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-02T00:00:30Z"), CurrentOSVersion: "13.0"}
	policy := testPolicy(t, "13.0", "2024-01-02T00:00:00Z", 0)

	past, err := IsPastCutoff(fact, policy)
	require.NoError(t, err)
	assert.True(t, past)

	days, err := DaysUntilCutoff(fact, policy)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

func TestIsPastCutoff_ExactInstantIsNotPast(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-02T00:00:00Z"), CurrentOSVersion: "13.0"}

	past, err := IsPastCutoff(fact, testPolicy(t, "13.0", "2024-01-02T00:00:00Z", 0))
	require.NoError(t, err)
	assert.False(t, past)
}

func TestRequiresDualCloseButtons(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		current   string
		want      bool
	}{
		{"three days left, threshold five", 5, "2024-01-07T09:00:00Z", true},
		{"ten days left, threshold five", 5, "2023-12-31T09:00:00Z", false},
		{"exactly at threshold", 5, "2024-01-05T09:00:00Z", true},
		{"past cutoff", 0, "2024-01-12T09:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := Fact{CurrentDate: date(t, tt.current), CurrentOSVersion: "13.0"}
			got, err := RequiresDualCloseButtons(fact, testPolicy(t, "14.0", "2024-01-10T12:00:00Z", tt.threshold))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequiresDualCloseButtons_MissingThreshold(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-07T09:00:00Z"), CurrentOSVersion: "13.0"}
	policy := Policy{MinimumOSVersion: "14.0", CutoffDate: date(t, "2024-01-10T12:00:00Z")}

	_, err := RequiresDualCloseButtons(fact, policy)
	require.ErrorIs(t, err, ErrMissingPolicyField)
}

func TestIsOSVersionCompliant(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-01T00:00:00Z"), CurrentOSVersion: "13.2.1"}

	ok, err := IsOSVersionCompliant(fact, testPolicy(t, "13.0", "2024-02-01T00:00:00Z", 3))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsOSVersionCompliant(fact, testPolicy(t, "14.0", "2024-02-01T00:00:00Z", 3))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComparisonModesDiverge(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-01T00:00:00Z"), CurrentOSVersion: "13.2"}
	policy := testPolicy(t, "13.5", "2024-02-01T00:00:00Z", 3)

	full, err := IsCompliant(fact, policy, ModeFullVersion)
	require.NoError(t, err)
	assert.False(t, full)

	major, err := IsCompliant(fact, policy, ModeMajorOnly)
	require.NoError(t, err)
	assert.True(t, major)
}

func TestInvalidVersionsSurfaceErrors(t *testing.T) {
	good := Fact{CurrentDate: date(t, "2024-01-01T00:00:00Z"), CurrentOSVersion: "13.2.1"}
	bad := Fact{CurrentDate: good.CurrentDate, CurrentOSVersion: "13.x.1"}
	policy := testPolicy(t, "14.0", "2024-02-01T00:00:00Z", 3)

	_, err := IsOSVersionCompliant(bad, policy)
	require.ErrorIs(t, err, version.ErrInvalidVersionFormat)

	_, err = IsMajorVersionCompliant(bad, policy)
	require.ErrorIs(t, err, version.ErrInvalidVersionFormat)

	policy.MinimumOSVersion = "14.beta"
	_, err = IsOSVersionCompliant(good, policy)
	require.ErrorIs(t, err, version.ErrInvalidVersionFormat)

	v, err := Evaluate(good, policy)
	require.ErrorIs(t, err, version.ErrInvalidVersionFormat)
	assert.Nil(t, v)
}

func TestEvaluate(t *testing.T) {
	fact := Fact{CurrentDate: date(t, "2024-01-07T09:00:00Z"), CurrentOSVersion: "13.2.1"}
	policy := testPolicy(t, "13.5", "2024-01-10T12:00:00Z", 5)

	v, err := Evaluate(fact, policy)
	require.NoError(t, err)
	assert.Equal(t, &Verdict{
		IsPastCutoff:              false,
		DaysUntilCutoff:           3,
		RequiresDualCloseButtons:  true,
		IsOSVersionCompliant:      false,
		MeetsRequiredMajorVersion: true,
	}, v)
	assert.False(t, v.Compliant(ModeFullVersion))
	assert.True(t, v.Compliant(ModeMajorOnly))
}

func TestEvaluate_MissingFields(t *testing.T) {
	now := date(t, "2024-01-07T09:00:00Z")
	cutoff := date(t, "2024-01-10T12:00:00Z")

	tests := []struct {
		name   string
		fact   Fact
		policy Policy
		want   error
		field  string
	}{
		{"minimum", Fact{now, "13.0"}, Policy{CutoffDate: cutoff, DualCloseThresholdDays: intPtr(1)}, ErrMissingPolicyField, "minimum_os_version"},
		{"cutoff", Fact{now, "13.0"}, Policy{MinimumOSVersion: "13.0", DualCloseThresholdDays: intPtr(1)}, ErrMissingPolicyField, "cut_off_date"},
		{"threshold", Fact{now, "13.0"}, Policy{MinimumOSVersion: "13.0", CutoffDate: cutoff}, ErrMissingPolicyField, "dual_close_trigger_threshold"},
		{"current date", Fact{CurrentOSVersion: "13.0"}, testPolicy(t, "13.0", "2024-01-10T12:00:00Z", 1), ErrMissingFactField, "current_date"},
		{"current version", Fact{CurrentDate: now}, testPolicy(t, "13.0", "2024-01-10T12:00:00Z", 1), ErrMissingFactField, "current_os_version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(tt.fact, tt.policy)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, v)

			var mf *MissingFieldError
			require.ErrorAs(t, err, &mf)
			assert.Equal(t, tt.field, mf.Field)
		})
	}
}

func TestEvaluate_ConcurrentCallers(t *testing.T) {
	policy := testPolicy(t, "14.0", "2024-01-10T12:00:00Z", 5)
	start := date(t, "2024-01-01T00:00:00Z")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			fact := Fact{CurrentDate: start.AddDate(0, 0, offset), CurrentOSVersion: "13.6.1"}
			v, err := Evaluate(fact, policy)
			assert.NoError(t, err)
			assert.Equal(t, 9-offset, v.DaysUntilCutoff)
		}(i)
	}
	wg.Wait()
}

func TestParseComparisonMode(t *testing.T) {
	m, err := ParseComparisonMode("major")
	require.NoError(t, err)
	assert.Equal(t, ModeMajorOnly, m)
	assert.Equal(t, "major", m.String())

	m, err = ParseComparisonMode("full")
	require.NoError(t, err)
	assert.Equal(t, ModeFullVersion, m)

	_, err = ParseComparisonMode("minor")
	require.Error(t, err)
}
