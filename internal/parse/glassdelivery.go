package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// GlassDelivery is a parsed supplier rack manifest.
type GlassDelivery struct {
	RackNumber          string              `json:"rackNumber"`
	CustomerOrderNumber string              `json:"customerOrderNumber,omitempty"`
	SupplierOrderNumber string              `json:"supplierOrderNumber,omitempty"`
	DeliveryDate        *time.Time          `json:"deliveryDate,omitempty"`
	Items               []GlassDeliveryItem `json:"items"`
}

// GlassDeliveryItem is one delivered pane group.
type GlassDeliveryItem struct {
	OrderNumber      string `json:"orderNumber"`
	OrderSuffix      string `json:"orderSuffix,omitempty"`
	Position         string `json:"position,omitempty"`
	WidthMM          int    `json:"widthMm"`
	HeightMM         int    `json:"heightMm"`
	Quantity         int    `json:"quantity"`
	GlassComposition string `json:"glassComposition,omitempty"`
	SerialNumber     string `json:"serialNumber,omitempty"`
	ClientCode       string `json:"clientCode,omitempty"`
}

var (
	deliveryRack          = regexp.MustCompile(`(?i)^numer\s+stojaka:\s*([^;]+)`)
	deliveryCustomerOrder = regexp.MustCompile(`(?i)^numer\s+zam[oó]wienia\s+klienta:\s*([^;]+)`)
	deliverySupplierOrder = regexp.MustCompile(`(?i)^numer\s+zam[oó]wienia\s+dostawcy:\s*([^;]+)`)
	deliveryDateLine      = regexp.MustCompile(`(?i)^data\s+dostawy:\s*([^;]+)`)
	dottedDate            = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
)

// ParseGlassDelivery parses a semicolon separated delivery manifest. The rack
// number is the business key; when the header omits it fallbackKey (usually
// the file's base name) is used.
func ParseGlassDelivery(text, fallbackKey string) (*GlassDelivery, error) {
	delivery := &GlassDelivery{}
	headerSeen := false

	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		switch {
		case deliveryRack.MatchString(trimmed):
			delivery.RackNumber = strings.TrimSpace(deliveryRack.FindStringSubmatch(trimmed)[1])
			continue
		case deliveryCustomerOrder.MatchString(trimmed):
			delivery.CustomerOrderNumber = strings.TrimSpace(deliveryCustomerOrder.FindStringSubmatch(trimmed)[1])
			continue
		case deliverySupplierOrder.MatchString(trimmed):
			delivery.SupplierOrderNumber = strings.TrimSpace(deliverySupplierOrder.FindStringSubmatch(trimmed)[1])
			continue
		case deliveryDateLine.MatchString(trimmed):
			delivery.DeliveryDate = parseDeliveryDate(strings.TrimSpace(deliveryDateLine.FindStringSubmatch(trimmed)[1]))
			continue
		}

		parts := splitFields(trimmed, ";")
		if !headerSeen {
			if strings.HasPrefix(strings.ToLower(fieldAt(parts, 0)), "lp") &&
				strings.Contains(strings.ToLower(fieldAt(parts, 1)), "zlecenie") {
				headerSeen = true
			}
			continue
		}
		if len(parts) < 6 || !rowNumberPattern.MatchString(parts[0]) {
			continue
		}
		number, err := ParseOrderNumber(parts[1])
		if err != nil {
			return nil, validationError("glass delivery", "row %s: %v", parts[0], err)
		}
		width, errW := strconv.Atoi(parts[3])
		height, errH := strconv.Atoi(parts[4])
		quantity, errQ := strconv.Atoi(parts[5])
		if errW != nil || errH != nil || errQ != nil {
			return nil, validationError("glass delivery", "row %s: non-numeric dimensions or quantity", parts[0])
		}
		delivery.Items = append(delivery.Items, GlassDeliveryItem{
			OrderNumber:      number.Base,
			OrderSuffix:      number.Suffix,
			Position:         parts[2],
			WidthMM:          width,
			HeightMM:         height,
			Quantity:         quantity,
			GlassComposition: fieldAt(parts, 6),
			SerialNumber:     fieldAt(parts, 7),
			ClientCode:       fieldAt(parts, 8),
		})
	}

	if !headerSeen {
		return nil, validationError("glass delivery", "item table not found")
	}
	if delivery.RackNumber == "" {
		delivery.RackNumber = strings.TrimSpace(fallbackKey)
	}
	if delivery.RackNumber == "" {
		return nil, validationError("glass delivery", "rack number not found")
	}
	return delivery, nil
}

func parseDeliveryDate(value string) *time.Time {
	if m := dottedDate.FindStringSubmatch(value); m != nil {
		return dateFromParts(m[1], m[2], m[3])
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}
