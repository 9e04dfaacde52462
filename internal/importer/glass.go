package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/parse"
	"docflow/internal/services"
	"docflow/internal/store"
)

// ImportGlassOrder imports a supplier glass order (.txt). An already imported
// order number fails permanently unless the file is a correction.
func (i *Importer) ImportGlassOrder(ctx context.Context, path string, correction bool) error {
	stop, err := i.preflight(ctx, path, correction)
	if err != nil {
		return i.fail(ctx, GlassOrder, path, err)
	}
	if stop {
		return nil
	}

	text, err := readText(path)
	if err != nil {
		return i.fail(ctx, GlassOrder, path, err)
	}
	parsed, err := parse.ParseGlassOrder(text)
	if err != nil {
		return i.fail(ctx, GlassOrder, path, err)
	}
	order := glassOrderFromParsed(parsed)

	var (
		id       int64
		replaced bool
	)
	if correction {
		id, replaced, err = i.store.ReplaceGlassOrder(ctx, order)
	} else {
		id, err = i.createGlassOrder(ctx, order)
	}
	if err != nil {
		return i.fail(ctx, GlassOrder, path, err)
	}

	logging.WithContext(ctx, i.logger).Info("glass order imported",
		logging.String(logging.FieldEventType, "import_completed"),
		logging.String("glass_order_number", order.GlassOrderNumber),
		logging.String("supplier", order.Supplier),
		logging.Int("items", len(order.Items)),
		logging.Int("panes", parsed.TotalQuantity()),
		logging.Bool("replaced", replaced),
	)
	i.finish(ctx, GlassOrder, path, outcome{
		status: store.ImportCompleted,
		metadata: map[string]any{
			"glassOrderId":     id,
			"glassOrderNumber": order.GlassOrderNumber,
			"itemsCount":       len(order.Items),
			"wasReplaced":      replaced,
		},
		event:   notifications.EventEntityChanged,
		payload: entityPayload("glass_order", order.GlassOrderNumber, replaced, path),
	})
	return nil
}

func (i *Importer) createGlassOrder(ctx context.Context, order *store.GlassOrder) (int64, error) {
	existing, err := i.store.FindGlassOrder(ctx, order.GlassOrderNumber)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, services.Wrap(services.ErrDuplicate, "importer", "glass order",
			fmt.Sprintf("glass order %s already imported", order.GlassOrderNumber), nil)
	}
	return i.store.CreateGlassOrder(ctx, order)
}

// ImportGlassDelivery imports a supplier delivery manifest (.csv) keyed by
// rack number.
func (i *Importer) ImportGlassDelivery(ctx context.Context, path string, correction bool) error {
	stop, err := i.preflight(ctx, path, correction)
	if err != nil {
		return i.fail(ctx, GlassDelivery, path, err)
	}
	if stop {
		return nil
	}

	text, err := readText(path)
	if err != nil {
		return i.fail(ctx, GlassDelivery, path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parsed, err := parse.ParseGlassDelivery(text, stem)
	if err != nil {
		return i.fail(ctx, GlassDelivery, path, err)
	}
	delivery := glassDeliveryFromParsed(parsed)

	var (
		id       int64
		replaced bool
	)
	if correction {
		id, replaced, err = i.store.ReplaceGlassDelivery(ctx, delivery)
	} else {
		id, err = i.createGlassDelivery(ctx, delivery)
	}
	if err != nil {
		return i.fail(ctx, GlassDelivery, path, err)
	}

	logging.WithContext(ctx, i.logger).Info("glass delivery imported",
		logging.String(logging.FieldEventType, "import_completed"),
		logging.String("rack_number", delivery.RackNumber),
		logging.Int("items", len(delivery.Items)),
		logging.Bool("replaced", replaced),
	)
	i.finish(ctx, GlassDelivery, path, outcome{
		status: store.ImportCompleted,
		metadata: map[string]any{
			"glassDeliveryId": id,
			"rackNumber":      delivery.RackNumber,
			"itemsCount":      len(delivery.Items),
			"wasReplaced":     replaced,
		},
		event:   notifications.EventEntityChanged,
		payload: entityPayload("glass_delivery", delivery.RackNumber, replaced, path),
	})
	return nil
}

func (i *Importer) createGlassDelivery(ctx context.Context, delivery *store.GlassDelivery) (int64, error) {
	existing, err := i.store.FindGlassDelivery(ctx, delivery.RackNumber)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, services.Wrap(services.ErrDuplicate, "importer", "glass delivery",
			fmt.Sprintf("rack %s already imported", delivery.RackNumber), nil)
	}
	return i.store.CreateGlassDelivery(ctx, delivery)
}

func entityPayload(entityType, key string, replaced bool, path string) notifications.Payload {
	action := "created"
	if replaced {
		action = "replaced"
	}
	return notifications.Payload{
		"entityType": entityType,
		"key":        key,
		"action":     action,
		"filename":   filepath.Base(path),
	}
}

func glassOrderFromParsed(p *parse.GlassOrder) *store.GlassOrder {
	order := &store.GlassOrder{
		GlassOrderNumber:     p.GlassOrderNumber,
		Supplier:             p.Supplier,
		OrderedBy:            p.OrderedBy,
		OrderDate:            p.OrderDate,
		ExpectedDeliveryDate: p.ExpectedDeliveryDate,
		Items:                make([]store.GlassOrderItem, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		order.Items = append(order.Items, store.GlassOrderItem{
			GlassType:     item.GlassType,
			Quantity:      item.Quantity,
			WidthMM:       item.WidthMM,
			HeightMM:      item.HeightMM,
			Position:      item.Position,
			OrderNumber:   item.OrderNumber,
			OrderSuffix:   item.OrderSuffix,
			FullReference: item.FullReference,
		})
	}
	return order
}

func glassDeliveryFromParsed(p *parse.GlassDelivery) *store.GlassDelivery {
	delivery := &store.GlassDelivery{
		RackNumber:          p.RackNumber,
		CustomerOrderNumber: p.CustomerOrderNumber,
		SupplierOrderNumber: p.SupplierOrderNumber,
		DeliveryDate:        p.DeliveryDate,
		Items:               make([]store.GlassDeliveryItem, 0, len(p.Items)),
	}
	for _, item := range p.Items {
		delivery.Items = append(delivery.Items, store.GlassDeliveryItem{
			OrderNumber:      item.OrderNumber,
			OrderSuffix:      item.OrderSuffix,
			Position:         item.Position,
			WidthMM:          item.WidthMM,
			HeightMM:         item.HeightMM,
			Quantity:         item.Quantity,
			GlassComposition: item.GlassComposition,
			SerialNumber:     item.SerialNumber,
			ClientCode:       item.ClientCode,
		})
	}
	return delivery
}
