package parser

// Printable bounds, inclusive.
const (
	minPrintable = 32
	maxPrintable = 126
)

// Validate reports whether input is non-empty and every byte is printable
// ASCII. It does not retain input.
func Validate(input []byte) bool {
	if len(input) == 0 {
		return false
	}
	for _, c := range input {
		if c < minPrintable || c > maxPrintable {
			return false
		}
	}
	return true
}

// FirstInvalid returns the offset of the first non-printable byte, or -1.
func FirstInvalid(input []byte) int {
	for i, c := range input {
		if c < minPrintable || c > maxPrintable {
			return i
		}
	}
	return -1
}

// Transform maps ASCII lowercase letters to uppercase; every other byte
// passes through.
func Transform(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
