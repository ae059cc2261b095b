// Package sampling holds the integer-second sampling arithmetic used by the frame sampler.
package sampling

import (
	"fmt"
	"math"
)

// ImageExt is the lossless still format frames are written in.
const ImageExt = "png"

// Timestamps returns 0, interval, 2*interval, ... for every t with t < floor(duration).
//
// A clip of 10s sampled every 4s yields [0 4 8], 10.5s every 10s yields [0], and a clip
// shorter than one second but longer than zero still yields [0]. An empty clip yields nothing.
// A non-positive interval or a non-finite duration yields nil.
func Timestamps(duration float64, interval int) []int {
	if interval <= 0 || !(duration > 0) || math.IsInf(duration, 0) {
		return nil
	}
	limit := int(math.Floor(duration))
	if limit == 0 {
		return []int{0}
	}
	out := make([]int, 0, (limit+interval-1)/interval)
	for t := 0; t < limit; t += interval {
		out = append(out, t)
	}
	return out
}

// FrameIndex maps a sample timestamp to the nearest frame: round(t * fps), halves away from zero.
func FrameIndex(t int, fps float64) int64 {
	return int64(math.Round(float64(t) * fps))
}

// FrameName is the file name of the frame sampled at t seconds.
func FrameName(t int) string {
	return fmt.Sprintf("frame_%ds.%s", t, ImageExt)
}
