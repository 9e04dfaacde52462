package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnknownSupplier marks glass orders whose supplier line is not recognised.
const UnknownSupplier = "NIEZNANY"

var knownSuppliers = []string{"PILKINGTON", "GUARDIAN", "SAINT-GOBAIN", "AGC", "PRESS-GLASS", "EUROGLAS"}

// GlassOrder is a parsed glass purchase order.
type GlassOrder struct {
	GlassOrderNumber     string           `json:"glassOrderNumber"`
	Supplier             string           `json:"supplier"`
	OrderedBy            string           `json:"orderedBy,omitempty"`
	OrderDate            *time.Time       `json:"orderDate,omitempty"`
	ExpectedDeliveryDate *time.Time       `json:"expectedDeliveryDate,omitempty"`
	Items                []GlassOrderItem `json:"items"`
}

// GlassOrderItem is one row of the order table.
type GlassOrderItem struct {
	GlassType     string `json:"glassType"`
	Quantity      int    `json:"quantity"`
	WidthMM       int    `json:"widthMm"`
	HeightMM      int    `json:"heightMm"`
	Position      string `json:"position"`
	OrderNumber   string `json:"orderNumber"`
	OrderSuffix   string `json:"orderSuffix,omitempty"`
	FullReference string `json:"fullReference"`
}

// TotalQuantity sums pane counts across all items.
func (g *GlassOrder) TotalQuantity() int {
	total := 0
	for _, item := range g.Items {
		total += item.Quantity
	}
	return total
}

// OrderBreakdown sums quantities per referenced order ("53480-a" keeps its suffix).
func (g *GlassOrder) OrderBreakdown() map[string]int {
	breakdown := make(map[string]int)
	for _, item := range g.Items {
		key := item.OrderNumber
		if item.OrderSuffix != "" {
			key += "-" + item.OrderSuffix
		}
		breakdown[key] += item.Quantity
	}
	return breakdown
}

var (
	glassOrderDate     = regexp.MustCompile(`(?i)^data\s+(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	glassOrderNumber   = regexp.MustCompile(`(?i)^numer\s+(.+)$`)
	glassDeliveryDate  = regexp.MustCompile(`(?i)dostawa\s+na\s+(\d{1,2})\s+(\d{1,2})\s+(\d{2})`)
	glassOrderedBy     = regexp.MustCompile(`^[A-ZĄĆĘŁŃÓŚŹŻ]\.[A-Z][a-ząćęłńóśźż]+$`)
	glassColumnSplit   = regexp.MustCompile(`\t+| {2,}`)
	glassReference     = regexp.MustCompile(`^(\d+)(?:-([a-zA-Z0-9]{1,3}))?(?:\s+poz\.?\s*(\S+))?`)
	glassTableHeaderRe = regexp.MustCompile(`(?i)^symbol\s.*zlecenie`)
)

// ParseGlassOrder parses a tab separated glass order export. A missing
// order number or item table is a validation error; an empty table is not.
func ParseGlassOrder(text string) (*GlassOrder, error) {
	order := &GlassOrder{Supplier: UnknownSupplier}
	inTable := false
	tableFound := false

	for _, raw := range lines(text) {
		line := strings.TrimSpace(raw)

		if m := glassDeliveryDate.FindStringSubmatch(line); m != nil {
			order.ExpectedDeliveryDate = dateFromParts(m[1], m[2], "20"+m[3])
			continue
		}
		if glassOrderedBy.MatchString(line) {
			order.OrderedBy = line
			continue
		}

		if inTable {
			if item, ok := parseGlassOrderRow(line); ok {
				order.Items = append(order.Items, item)
			}
			continue
		}

		switch {
		case glassTableHeaderRe.MatchString(line):
			inTable, tableFound = true, true
		case glassOrderDate.MatchString(line):
			m := glassOrderDate.FindStringSubmatch(line)
			order.OrderDate = dateFromParts(m[1], m[2], m[3])
		case glassOrderNumber.MatchString(line):
			order.GlassOrderNumber = strings.TrimSpace(glassOrderNumber.FindStringSubmatch(line)[1])
		default:
			if supplier := matchSupplier(line); supplier != "" {
				order.Supplier = supplier
			}
		}
	}

	if order.GlassOrderNumber == "" {
		return nil, validationError("glass order", "glass order number not found")
	}
	if !tableFound {
		return nil, validationError("glass order", "item table not found")
	}
	return order, nil
}

func parseGlassOrderRow(line string) (GlassOrderItem, bool) {
	cols := glassColumnSplit.Split(line, -1)
	if len(cols) < 6 {
		return GlassOrderItem{}, false
	}
	quantity, errQ := strconv.Atoi(strings.TrimSpace(cols[1]))
	width, errW := strconv.Atoi(strings.TrimSpace(cols[2]))
	height, errH := strconv.Atoi(strings.TrimSpace(cols[3]))
	if errQ != nil || errW != nil || errH != nil {
		return GlassOrderItem{}, false
	}
	reference := strings.TrimSpace(strings.Join(cols[5:], " "))
	m := glassReference.FindStringSubmatch(reference)
	if m == nil {
		return GlassOrderItem{}, false
	}
	return GlassOrderItem{
		GlassType:     strings.TrimSpace(cols[0]),
		Quantity:      quantity,
		WidthMM:       width,
		HeightMM:      height,
		Position:      strings.TrimSpace(cols[4]),
		OrderNumber:   m[1],
		OrderSuffix:   m[2],
		FullReference: reference,
	}, true
}

func matchSupplier(line string) string {
	upper := strings.ToUpper(line)
	for _, supplier := range knownSuppliers {
		if strings.Contains(upper, supplier) {
			return supplier
		}
	}
	return ""
}

func dateFromParts(day, month, year string) *time.Time {
	d, errD := strconv.Atoi(day)
	m, errM := strconv.Atoi(month)
	y, errY := strconv.Atoi(year)
	if errD != nil || errM != nil || errY != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return nil
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}
