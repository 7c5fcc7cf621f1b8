package suggest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/wodcoach/internal/catalog"
	"github.com/myrjola/wodcoach/internal/workout"
)

func TestAdjustIntensity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		entry     catalog.Entry
		intensity workout.Intensity
		want      catalog.Entry
	}{
		{
			name:      "high raises sets and reps",
			entry:     catalog.Entry{Name: "Squats", Sets: 3, Reps: "8-10"},
			intensity: workout.IntensityHigh,
			want:      catalog.Entry{Name: "Squats", Sets: 4, Reps: "10-13"},
		},
		{
			name:      "high extends durations",
			entry:     catalog.Entry{Name: "Plank", Sets: 3, Duration: "30 seconds"},
			intensity: workout.IntensityHigh,
			want:      catalog.Entry{Name: "Plank", Sets: 4, Duration: "45 seconds"},
		},
		{
			name:      "high converts minutes",
			entry:     catalog.Entry{Name: "Jumping Jacks", Sets: 3, Duration: "1 minute"},
			intensity: workout.IntensityHigh,
			want:      catalog.Entry{Name: "Jumping Jacks", Sets: 4, Duration: "75 seconds"},
		},
		{
			name:      "high keeps rep suffix",
			entry:     catalog.Entry{Name: "Rows", Sets: 3, Reps: "10-12 each arm"},
			intensity: workout.IntensityHigh,
			want:      catalog.Entry{Name: "Rows", Sets: 4, Reps: "12-15 each arm"},
		},
		{
			name:      "low lowers sets and reps",
			entry:     catalog.Entry{Name: "Thrusters", Sets: 3, Reps: "6-8"},
			intensity: workout.IntensityLow,
			want:      catalog.Entry{Name: "Thrusters", Sets: 2, Reps: "4-6"},
		},
		{
			name:      "low respects floors",
			entry:     catalog.Entry{Name: "Deadlifts", Sets: 1, Reps: "2-4"},
			intensity: workout.IntensityLow,
			want:      catalog.Entry{Name: "Deadlifts", Sets: 1, Reps: "1-3"},
		},
		{
			name:      "low leaves durations",
			entry:     catalog.Entry{Name: "Plank", Sets: 3, Duration: "30 seconds"},
			intensity: workout.IntensityLow,
			want:      catalog.Entry{Name: "Plank", Sets: 2, Duration: "30 seconds"},
		},
		{
			name:      "moderate is unchanged",
			entry:     catalog.Entry{Name: "Squats", Sets: 3, Reps: "8-10"},
			intensity: workout.IntensityModerate,
			want:      catalog.Entry{Name: "Squats", Sets: 3, Reps: "8-10"},
		},
		{
			name:      "non-numeric reps are unchanged",
			entry:     catalog.Entry{Name: "Run", Sets: 1, Reps: "max"},
			intensity: workout.IntensityHigh,
			want:      catalog.Entry{Name: "Run", Sets: 2, Reps: "max"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, adjustIntensity(tt.entry, tt.intensity)); diff != "" {
				t.Errorf("adjustIntensity mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
