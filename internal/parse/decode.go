package parse

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"docflow/internal/services"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts document bytes to text. Valid UTF-8 (with or without a
// BOM) is used as-is; anything else is decoded as Windows-1250.
func Decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	out, _, err := transform.Bytes(charmap.Windows1250.NewDecoder(), raw)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "parse", "decode", "windows-1250", err)
	}
	return string(out), nil
}

// lines splits text into trimmed, non-empty lines regardless of line endings.
func lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func validationError(op, format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "parse", op, fmt.Sprintf(format, args...), nil)
}
