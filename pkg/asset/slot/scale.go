package slot

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale is the pixel density multiplier of an asset variant. Zero means
// unscaled (the variant serves every density).
type Scale uint16

// ParseScale maps a manifest scale string ("1x", "2x", "3x") to its
// numeric form. Unknown or malformed strings return (0, false).
func ParseScale(value string) (Scale, bool) {
	if !strings.HasSuffix(value, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(value, "x"))
	if err != nil || n < 1 {
		return 0, false
	}
	return Scale(n), true
}

func (s Scale) Code() uint16 {
	return uint16(s)
}

func (s Scale) String() string {
	if s == 0 {
		return "any"
	}
	return fmt.Sprintf("%dx", uint16(s))
}
