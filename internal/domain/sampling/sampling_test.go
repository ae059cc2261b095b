package sampling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		interval int
		want     []int
	}{
		{name: "exact multiple excludes end", duration: 10, interval: 5, want: []int{0, 5}},
		{name: "10s every 4s", duration: 10, interval: 4, want: []int{0, 4, 8}},
		{name: "fractional tail is dropped", duration: 8.5, interval: 4, want: []int{0, 4}},
		{name: "fractional tail past a multiple", duration: 10.5, interval: 10, want: []int{0}},
		{name: "ntsc five seconds", duration: 150 / 29.97, interval: 1, want: []int{0, 1, 2, 3, 4}},
		{name: "shorter than interval", duration: 3, interval: 10, want: []int{0}},
		{name: "sub-second clip", duration: 0.5, interval: 1, want: []int{0}},
		{name: "empty clip", duration: 0, interval: 4, want: nil},
		{name: "zero interval", duration: 10, interval: 0, want: nil},
		{name: "negative interval", duration: 10, interval: -1, want: nil},
		{name: "nan duration", duration: math.NaN(), interval: 1, want: nil},
		{name: "infinite duration", duration: math.Inf(1), interval: 1, want: nil},
		{name: "every second", duration: 3, interval: 1, want: []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Timestamps(tt.duration, tt.interval))
		})
	}
}

func TestTimestamps_Shape(t *testing.T) {
	for _, interval := range []int{1, 2, 3, 7, 60} {
		for d := 0.0; d < 200; d += 0.75 {
			got := Timestamps(d, interval)
			if d == 0 {
				assert.Empty(t, got)
				continue
			}
			if assert.NotEmpty(t, got) {
				assert.Equal(t, 0, got[0])
			}
			for i := 1; i < len(got); i++ {
				assert.Equal(t, got[i-1]+interval, got[i])
			}
			if d < 1 {
				assert.Equal(t, []int{0}, got)
				continue
			}
			whole := int(math.Floor(d))
			assert.Less(t, got[len(got)-1], whole)
			assert.GreaterOrEqual(t, got[len(got)-1]+interval, whole)
			assert.Len(t, got, (whole+interval-1)/interval)
		}
	}
}

func TestFrameIndex_RoundsToNearest(t *testing.T) {
	tests := []struct {
		t    int
		fps  float64
		want int64
	}{
		{t: 0, fps: 30, want: 0},
		{t: 4, fps: 30, want: 120},
		{t: 1, fps: 29.97, want: 30},
		{t: 3, fps: 29.97, want: 90},
		{t: 10, fps: 23.976, want: 240},
		{t: 1, fps: 12.5, want: 13},
		{t: 1, fps: 0.4, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrameIndex(tt.t, tt.fps), "t=%d fps=%v", tt.t, tt.fps)
	}
}

func TestFrameName(t *testing.T) {
	assert.Equal(t, "frame_0s.png", FrameName(0))
	assert.Equal(t, "frame_120s.png", FrameName(120))
}
