package analysis

// ToCompassOrder rotates a sequence sampled over [-180, 180) so it starts at
// azimuth 0: entries at or past index len/2 come first, the rest follow.
func ToCompassOrder[T any](s []T) []T {
	return rotateLeft(s, len(s)/2)
}

// FromCompassOrder undoes ToCompassOrder.
func FromCompassOrder[T any](s []T) []T {
	return rotateLeft(s, len(s)-len(s)/2)
}

func rotateLeft[T any](s []T, k int) []T {
	out := make([]T, 0, len(s))
	out = append(out, s[k:]...)
	return append(out, s[:k]...)
}

// CompassAzimuth maps an azimuth in [-180, 180) to [0, 360).
func CompassAzimuth(a float64) float64 {
	if a < 0 {
		return a + 360
	}
	return a
}
