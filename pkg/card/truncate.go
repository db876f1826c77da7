package card

const ellipsis = "..."

// MeasureFunc reports the rendered width of s in pixels.
type MeasureFunc func(s string) float64

// Truncate shortens value so that it fits maxWidth once an ellipsis is
// appended. Characters are dropped from the end while the shortened text
// plus "..." is still too wide and more than three characters remain. A
// value that already fits is returned unchanged, and so is a value that
// could not be shortened at all.
func Truncate(value string, maxWidth float64, measure MeasureFunc) string {
	if measure(value) <= maxWidth {
		return value
	}

	runes := []rune(value)
	n := len(runes)
	for n > 3 && measure(string(runes[:n])+ellipsis) > maxWidth {
		n--
	}
	if n == len(runes) {
		return value
	}
	return string(runes[:n]) + ellipsis
}
