package parse

import (
	"regexp"
	"strings"
)

const maxOrderNumberLength = 20

var (
	orderNumberSeparated = regexp.MustCompile(`^(\d+)[-\s]([a-zA-Z0-9]{1,3})$`)
	orderNumberAttached  = regexp.MustCompile(`^(\d+)([a-zA-Z]{1,3})$`)
	orderNumberPlain     = regexp.MustCompile(`^(\d+)$`)
)

// OrderNumber is an order number split into its numeric base and optional
// variant suffix: "53335-a", "53335a" and "53335 a" all have base "53335"
// and suffix "a".
type OrderNumber struct {
	Full   string `json:"full"`
	Base   string `json:"base"`
	Suffix string `json:"suffix,omitempty"`
}

// HasSuffix reports whether the number names a variant of a base order.
func (n OrderNumber) HasSuffix() bool {
	return n.Suffix != ""
}

// ParseOrderNumber splits raw into base and suffix.
func ParseOrderNumber(raw string) (OrderNumber, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return OrderNumber{}, validationError("order number", "order number is empty")
	}
	if len(value) > maxOrderNumberLength {
		return OrderNumber{}, validationError("order number", "order number %q exceeds %d characters", value, maxOrderNumberLength)
	}
	for _, pattern := range []*regexp.Regexp{orderNumberSeparated, orderNumberAttached} {
		if m := pattern.FindStringSubmatch(value); m != nil {
			return OrderNumber{Full: value, Base: m[1], Suffix: m[2]}, nil
		}
	}
	if orderNumberPlain.MatchString(value) {
		return OrderNumber{Full: value, Base: value}, nil
	}
	return OrderNumber{}, validationError("order number", "invalid order number %q", value)
}
