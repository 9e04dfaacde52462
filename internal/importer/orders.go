package importer

import (
	"context"
	"path/filepath"

	"docflow/internal/conflict"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/parse"
	"docflow/internal/store"
)

// ImportOrderSpec imports an order specification export. A collision with an
// existing order is not an error: identical counts mark a duplicate
// re-export, anything else becomes a pending conflict for review.
func (i *Importer) ImportOrderSpec(ctx context.Context, path string, correction bool) error {
	stop, err := i.preflight(ctx, path, correction)
	if err != nil {
		return i.fail(ctx, OrderSpec, path, err)
	}
	if stop {
		return nil
	}

	text, err := readText(path)
	if err != nil {
		return i.fail(ctx, OrderSpec, path, err)
	}
	spec, err := parse.ParseOrderSpec(text)
	if err != nil {
		return i.fail(ctx, OrderSpec, path, err)
	}
	order := orderFromSpec(spec)

	if correction {
		id, replaced, err := i.store.ReplaceOrder(ctx, order)
		if err != nil {
			return i.fail(ctx, OrderSpec, path, err)
		}
		i.orderImported(ctx, path, order, id, replaced)
		return nil
	}

	existing, err := i.store.FindOrderByNumber(ctx, spec.OrderNumber.Full)
	if err != nil {
		return i.fail(ctx, OrderSpec, path, err)
	}
	if existing != nil {
		if existing.TotalWindows == order.TotalWindows && existing.TotalGlasses == order.TotalGlasses {
			i.duplicateOrder(ctx, path, existing)
			return nil
		}
		return i.orderConflict(ctx, path, spec, existing)
	}

	if spec.OrderNumber.HasSuffix() {
		base, err := i.store.FindOrderByNumber(ctx, spec.OrderNumber.Base)
		if err != nil {
			return i.fail(ctx, OrderSpec, path, err)
		}
		if base != nil {
			return i.orderConflict(ctx, path, spec, base)
		}
	}

	id, err := i.store.CreateOrder(ctx, order)
	if err != nil {
		return i.fail(ctx, OrderSpec, path, err)
	}
	i.orderImported(ctx, path, order, id, false)
	return nil
}

func (i *Importer) orderImported(ctx context.Context, path string, order *store.Order, id int64, replaced bool) {
	logging.WithContext(ctx, i.logger).Info("order specification imported",
		logging.String(logging.FieldEventType, "import_completed"),
		logging.String("order_number", order.OrderNumber),
		logging.Int("windows", order.TotalWindows),
		logging.Int("glasses", order.TotalGlasses),
		logging.Bool("replaced", replaced),
	)
	i.finish(ctx, OrderSpec, path, outcome{
		status: store.ImportCompleted,
		metadata: map[string]any{
			"orderId":     id,
			"orderNumber": order.OrderNumber,
			"itemsCount":  len(order.Windows) + len(order.Glasses),
			"wasReplaced": replaced,
		},
		event:   notifications.EventEntityChanged,
		payload: entityPayload("order", order.OrderNumber, replaced, path),
	})
}

func (i *Importer) duplicateOrder(ctx context.Context, path string, existing *store.Order) {
	logging.WithContext(ctx, i.logger).Info("order specification re-exported unchanged",
		logging.String(logging.FieldEventType, "import_duplicate"),
		logging.String("order_number", existing.OrderNumber),
		logging.Int64("order_id", existing.ID),
	)
	i.finish(ctx, OrderSpec, path, outcome{
		status: store.ImportCompleted,
		metadata: map[string]any{
			"orderId":     existing.ID,
			"orderNumber": existing.OrderNumber,
			"duplicate":   true,
		},
	})
}

func (i *Importer) orderConflict(ctx context.Context, path string, spec *parse.OrderSpec, base *store.Order) error {
	baseID := base.ID
	recorded, created, err := i.conflicts.Record(ctx, conflict.Candidate{
		OrderNumber:     spec.OrderNumber.Full,
		BaseOrderNumber: base.OrderNumber,
		Suffix:          spec.OrderNumber.Suffix,
		BaseOrderID:     &baseID,
		DocumentAuthor:  spec.DocumentAuthor,
		Filepath:        path,
		Filename:        filepath.Base(path),
		Parsed:          spec,
		ExistingWindows: base.TotalWindows,
		ExistingGlasses: base.TotalGlasses,
		NewWindows:      spec.WindowCount(),
		NewGlasses:      spec.GlassCount(),
	})
	if err != nil {
		return i.fail(ctx, OrderSpec, path, err)
	}

	logging.WithContext(ctx, i.logger).Info("order specification needs review",
		logging.String(logging.FieldEventType, "import_conflict"),
		logging.Alert("order_collision"),
		logging.String("order_number", recorded.OrderNumber),
		logging.String("base_order_number", recorded.BaseOrderNumber),
		logging.Int64("conflict_id", recorded.ID),
		logging.String("suggestion", string(recorded.SystemSuggestion)),
	)
	out := outcome{
		status: store.ImportPending,
		metadata: map[string]any{
			"conflictId":      recorded.ID,
			"orderNumber":     recorded.OrderNumber,
			"baseOrderNumber": recorded.BaseOrderNumber,
		},
	}
	if created {
		out.event = notifications.EventConflictDetected
		out.payload = notifications.Payload{
			"orderNumber":     recorded.OrderNumber,
			"baseOrderNumber": recorded.BaseOrderNumber,
			"suggestion":      string(recorded.SystemSuggestion),
			"conflictId":      recorded.ID,
		}
	}
	i.finish(ctx, OrderSpec, path, out)
	return nil
}

func orderFromSpec(spec *parse.OrderSpec) *store.Order {
	order := &store.Order{
		OrderNumber:     spec.OrderNumber.Full,
		Client:          spec.Client,
		Project:         spec.Project,
		System:          spec.System,
		Deadline:        spec.Deadline,
		PVCDeliveryDate: spec.PVCDeliveryDate,
		DocumentAuthor:  spec.DocumentAuthor,
		TotalWindows:    spec.WindowCount(),
		TotalSashes:     spec.Totals.Sashes,
		TotalGlasses:    spec.GlassCount(),
	}
	for _, r := range spec.Requirements {
		order.Requirements = append(order.Requirements, store.Requirement{
			ArticleNumber: r.ArticleNumber,
			ProfileNumber: r.ProfileNumber,
			ColorCode:     r.ColorCode,
			Beams:         r.Beams,
			RestMM:        r.RestMM,
		})
	}
	for _, w := range spec.Windows {
		order.Windows = append(order.Windows, store.Window{
			Position:    w.Position,
			WidthMM:     w.WidthMM,
			HeightMM:    w.HeightMM,
			ProfileType: w.ProfileType,
			Quantity:    w.Quantity,
			Reference:   w.Reference,
		})
	}
	for _, g := range spec.Glasses {
		order.Glasses = append(order.Glasses, store.Glass{
			Position:    g.Position,
			WidthMM:     g.WidthMM,
			HeightMM:    g.HeightMM,
			Quantity:    g.Quantity,
			PackageType: g.PackageType,
		})
	}
	return order
}
