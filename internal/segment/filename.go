package segment

import (
	"fmt"
	"strconv"
	"strings"
)

const filenameSuffix = ".log"

// filenameDigits is the zero-padded width of the base sequence number
// encoded into a segment's filename: wide enough for any int64. A larger
// uint64 base is written with all 20 of its digits.
const filenameDigits = 19

// FormatFilename returns the on-disk identifier for a segment whose
// base sequence number is base: a zero-padded 19-digit decimal
// followed by ".log".
func FormatFilename(base uint64) string {
	return fmt.Sprintf("%0*d%s", filenameDigits, base, filenameSuffix)
}

// ParseFilename extracts the base sequence number from a segment
// filename. It returns ok=false for any name that isn't a decimal
// number followed by ".log" — callers are expected to silently skip
// those, per stream recovery's directory scan.
func ParseFilename(name string) (base uint64, ok bool) {
	prefix, found := strings.CutSuffix(name, filenameSuffix)
	if !found || prefix == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
