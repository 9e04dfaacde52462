package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// OrderSpec is a parsed order specification.
type OrderSpec struct {
	OrderNumber     OrderNumber   `json:"orderNumber"`
	Client          string        `json:"client,omitempty"`
	Project         string        `json:"project,omitempty"`
	System          string        `json:"system,omitempty"`
	Deadline        string        `json:"deadline,omitempty"`
	PVCDeliveryDate string        `json:"pvcDeliveryDate,omitempty"`
	DocumentAuthor  string        `json:"documentAuthor,omitempty"`
	Requirements    []Requirement `json:"requirements"`
	Windows         []Window      `json:"windows"`
	Glasses         []Glass       `json:"glasses"`
	Totals          Totals        `json:"totals"`
}

// Requirement is one profile demand row.
type Requirement struct {
	ArticleNumber string `json:"articleNumber"`
	ProfileNumber string `json:"profileNumber"`
	ColorCode     string `json:"colorCode"`
	Beams         int    `json:"beams"`
	RestMM        int    `json:"restMm"`
}

// Window is one window or door row.
type Window struct {
	Position    int    `json:"position"`
	WidthMM     int    `json:"widthMm"`
	HeightMM    int    `json:"heightMm"`
	ProfileType string `json:"profileType,omitempty"`
	Quantity    int    `json:"quantity"`
	Reference   string `json:"reference,omitempty"`
}

// Glass is one glazing unit row.
type Glass struct {
	Position    int    `json:"position"`
	WidthMM     int    `json:"widthMm"`
	HeightMM    int    `json:"heightMm"`
	Quantity    int    `json:"quantity"`
	PackageType string `json:"packageType,omitempty"`
}

// Totals are the summary counts printed at the end of the export.
type Totals struct {
	Windows int `json:"windows"`
	Sashes  int `json:"sashes"`
	Glasses int `json:"glasses"`
}

// WindowCount prefers the printed total and falls back to the parsed rows.
func (o *OrderSpec) WindowCount() int {
	if o.Totals.Windows > 0 {
		return o.Totals.Windows
	}
	return len(o.Windows)
}

// GlassCount prefers the printed total and falls back to the parsed rows.
func (o *OrderSpec) GlassCount() int {
	if o.Totals.Glasses > 0 {
		return o.Totals.Glasses
	}
	return len(o.Glasses)
}

type specSection int

const (
	sectionRequirements specSection = iota
	sectionWindows
	sectionGlasses
)

var (
	articlePattern        = regexp.MustCompile(`(?i)^\d{8}p?$`)
	requirementOrderNum   = regexp.MustCompile(`^\d+(?:[-\s][a-zA-Z0-9]{1,3})?$`)
	rowNumberPattern      = regexp.MustCompile(`^\d+$`)
	clientPattern         = regexp.MustCompile(`(?i)klient:\s*([^;]+)`)
	projectPattern        = regexp.MustCompile(`(?i)projekt:\s*([^;]+)`)
	systemPattern         = regexp.MustCompile(`(?i)system:\s*([^;]+)`)
	deadlinePattern       = regexp.MustCompile(`(?i)termin.*realizacji:\s*([^;]+)`)
	pvcDeliveryPattern    = regexp.MustCompile(`(?i)dostawa\s+pvc:\s*([^;]+)`)
	documentAuthorPattern = regexp.MustCompile(`(?i)autor.*dokumentu:\s*([^;]+)`)
)

// ParseOrderSpec parses a semicolon separated order specification. The order
// number comes from the first requirement row; a file without one is invalid.
func ParseOrderSpec(text string) (*OrderSpec, error) {
	spec := &OrderSpec{}
	orderNumber := ""
	section := sectionRequirements
	headerSkipped := false

	for _, line := range lines(text) {
		parts := splitFields(line, ";")
		lower := strings.ToLower(line)

		if parseMetadata(spec, line) {
			continue
		}

		switch {
		case strings.Contains(lower, "lista okien"), strings.Contains(lower, "lista drzwi"):
			section, headerSkipped = sectionWindows, false
			continue
		case strings.Contains(lower, "lista szyb"):
			section, headerSkipped = sectionGlasses, false
			continue
		case strings.Contains(lower, "laczna liczba"), strings.Contains(lower, "łączna liczba"):
			value := atoiAt(parts, 1, 0)
			switch {
			case strings.Contains(lower, "okien"), strings.Contains(lower, "drzwi"):
				spec.Totals.Windows = value
			case strings.Contains(lower, "skrzyd"):
				spec.Totals.Sashes = value
			case strings.Contains(lower, "szyb"):
				spec.Totals.Glasses = value
			}
			continue
		case strings.Contains(lower, "laczna lic"), strings.Contains(lower, "łączna lic"):
			if value := atoiAt(parts, 1, 0); spec.Totals.Glasses == 0 && value > 0 {
				spec.Totals.Glasses = value
			}
			continue
		}

		first := strings.ToLower(fieldAt(parts, 0))
		second := strings.ToLower(fieldAt(parts, 1))
		switch section {
		case sectionRequirements:
			if !headerSkipped && (strings.Contains(first, "zlec") || strings.Contains(first, "numer")) {
				headerSkipped = true
				continue
			}
			if len(parts) < 4 || parts[0] == "" || parts[1] == "" {
				continue
			}
			if orderNumber == "" && requirementOrderNum.MatchString(parts[0]) {
				orderNumber = parts[0]
			}
			article := parts[1]
			if !articlePattern.MatchString(article) {
				continue
			}
			spec.Requirements = append(spec.Requirements, Requirement{
				ArticleNumber: article,
				ProfileNumber: article[1:5],
				ColorCode:     article[5:8],
				Beams:         atoiAt(parts, 2, 0),
				RestMM:        atoiAt(parts, 3, 0),
			})
		case sectionWindows:
			if !headerSkipped && (strings.Contains(first, "lp") || strings.Contains(second, "szerok")) {
				headerSkipped = true
				continue
			}
			if len(parts) < 5 || !rowNumberPattern.MatchString(parts[0]) {
				continue
			}
			window := Window{
				Position:    atoiAt(parts, 0, 0),
				WidthMM:     atoiAt(parts, 1, 0),
				HeightMM:    atoiAt(parts, 2, 0),
				ProfileType: fieldAt(parts, 3),
				Quantity:    atoiAt(parts, 4, 1),
				Reference:   fieldAt(parts, 5),
			}
			if window.WidthMM == 0 && window.HeightMM == 0 {
				continue
			}
			spec.Windows = append(spec.Windows, window)
		case sectionGlasses:
			if !headerSkipped && (strings.Contains(first, "lp") || strings.Contains(second, "pozycja")) {
				headerSkipped = true
				continue
			}
			if len(parts) < 6 || !rowNumberPattern.MatchString(parts[0]) {
				continue
			}
			spec.Glasses = append(spec.Glasses, Glass{
				Position:    atoiAt(parts, 1, 0),
				WidthMM:     atoiAt(parts, 2, 0),
				HeightMM:    atoiAt(parts, 3, 0),
				Quantity:    atoiAt(parts, 4, 1),
				PackageType: fieldAt(parts, 5),
			})
		}
	}

	if orderNumber == "" {
		return nil, validationError("order spec", "no order number found")
	}
	number, err := ParseOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	spec.OrderNumber = number

	if spec.Project == "" {
		spec.Project = uniqueJoined(spec.Windows, func(w Window) string { return w.Reference })
	}
	if spec.System == "" {
		spec.System = uniqueJoined(spec.Windows, func(w Window) string { return w.ProfileType })
	}
	return spec, nil
}

// parseMetadata captures header fields; it reports whether line was a
// metadata line.
func parseMetadata(spec *OrderSpec, line string) bool {
	matched := false
	capture := func(pattern *regexp.Regexp, dst *string) {
		if m := pattern.FindStringSubmatch(line); m != nil {
			*dst = strings.TrimSpace(m[1])
			matched = true
		}
	}
	capture(clientPattern, &spec.Client)
	capture(projectPattern, &spec.Project)
	capture(systemPattern, &spec.System)
	capture(deadlinePattern, &spec.Deadline)
	capture(pvcDeliveryPattern, &spec.PVCDeliveryDate)
	capture(documentAuthorPattern, &spec.DocumentAuthor)
	return matched
}

func uniqueJoined(windows []Window, field func(Window) string) string {
	seen := make(map[string]struct{})
	var values []string
	for _, w := range windows {
		v := field(w)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return strings.Join(values, ", ")
}

func splitFields(line, sep string) []string {
	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func fieldAt(parts []string, idx int) string {
	if idx < len(parts) {
		return parts[idx]
	}
	return ""
}

// atoiAt parses the leading integer of parts[idx], returning fallback when
// the field is missing or not numeric.
func atoiAt(parts []string, idx, fallback int) int {
	value := fieldAt(parts, idx)
	end := 0
	for end < len(value) && (value[end] >= '0' && value[end] <= '9' || end == 0 && value[end] == '-') {
		end++
	}
	n, err := strconv.Atoi(value[:end])
	if err != nil {
		return fallback
	}
	return n
}
