package util

import (
	"cmp"
	"os"
)

// Lerp performs linear interpolation between a and b with t in [0,1]
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Clamp restricts a value to be between min and max
func Clamp[T cmp.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
