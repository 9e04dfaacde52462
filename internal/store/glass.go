package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindGlassOrder returns the glass order header for a business key, or nil.
func (s *Store) FindGlassOrder(ctx context.Context, glassOrderNumber string) (*GlassOrder, error) {
	var (
		order      GlassOrder
		supplier   sql.NullString
		orderedBy  sql.NullString
		orderDate  sql.NullString
		expected   sql.NullString
		createdRaw string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT g.id, g.glass_order_number, g.supplier, g.ordered_by, g.order_date, g.expected_delivery_date, g.created_at,
                (SELECT COUNT(1) FROM glass_order_items i WHERE i.glass_order_id = g.id)
         FROM glass_orders g WHERE g.glass_order_number = ?`, glassOrderNumber,
	).Scan(&order.ID, &order.GlassOrderNumber, &supplier, &orderedBy, &orderDate, &expected, &createdRaw, &order.ItemCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find glass order", err)
	}
	order.Supplier = supplier.String
	order.OrderedBy = orderedBy.String
	order.OrderDate = timePtr(orderDate)
	order.ExpectedDeliveryDate = timePtr(expected)
	if created, err := parseTimeString(createdRaw); err == nil {
		order.CreatedAt = created
	}
	return &order, nil
}

// CreateGlassOrder inserts a glass order and its items.
func (s *Store) CreateGlassOrder(ctx context.Context, order *GlassOrder) (int64, error) {
	var id int64
	err := s.withTx(ctx, "create glass order", func(tx *sql.Tx) error {
		var err error
		id, err = insertGlassOrderTx(ctx, tx, order)
		return err
	})
	if err != nil {
		return 0, err
	}
	order.ID = id
	return id, nil
}

// ReplaceGlassOrder atomically swaps any glass order with the same number for order.
func (s *Store) ReplaceGlassOrder(ctx context.Context, order *GlassOrder) (int64, bool, error) {
	var (
		id       int64
		replaced bool
	)
	err := s.withTx(ctx, "replace glass order", func(tx *sql.Tx) error {
		var err error
		if replaced, err = s.deleteByKeyTx(ctx, tx, "glass_order",
			`DELETE FROM glass_orders WHERE glass_order_number = ?`, order.GlassOrderNumber); err != nil {
			return err
		}
		id, err = insertGlassOrderTx(ctx, tx, order)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	order.ID = id
	return id, replaced, nil
}

func insertGlassOrderTx(ctx context.Context, tx *sql.Tx, order *GlassOrder) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO glass_orders (glass_order_number, supplier, ordered_by, order_date, expected_delivery_date, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		order.GlassOrderNumber,
		nullableString(order.Supplier),
		nullableString(order.OrderedBy),
		nullableDate(order.OrderDate),
		nullableDate(order.ExpectedDeliveryDate),
		nowString(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert glass order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO glass_order_items (glass_order_id, glass_type, quantity, width_mm, height_mm, position, order_number, order_suffix, full_reference)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, item.GlassType, item.Quantity, item.WidthMM, item.HeightMM,
			nullableString(item.Position), nullableString(item.OrderNumber),
			nullableString(item.OrderSuffix), nullableString(item.FullReference),
		); err != nil {
			return 0, fmt.Errorf("insert glass order item: %w", err)
		}
	}
	order.ItemCount = len(order.Items)
	return id, nil
}

// FindGlassDelivery returns the delivery header for a rack number, or nil.
func (s *Store) FindGlassDelivery(ctx context.Context, rackNumber string) (*GlassDelivery, error) {
	var (
		delivery     GlassDelivery
		customer     sql.NullString
		supplier     sql.NullString
		deliveryDate sql.NullString
		createdRaw   string
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT d.id, d.rack_number, d.customer_order_number, d.supplier_order_number, d.delivery_date, d.created_at,
                (SELECT COUNT(1) FROM glass_delivery_items i WHERE i.glass_delivery_id = d.id)
         FROM glass_deliveries d WHERE d.rack_number = ?`, rackNumber,
	).Scan(&delivery.ID, &delivery.RackNumber, &customer, &supplier, &deliveryDate, &createdRaw, &delivery.ItemCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find glass delivery", err)
	}
	delivery.CustomerOrderNumber = customer.String
	delivery.SupplierOrderNumber = supplier.String
	delivery.DeliveryDate = timePtr(deliveryDate)
	if created, err := parseTimeString(createdRaw); err == nil {
		delivery.CreatedAt = created
	}
	return &delivery, nil
}

// CreateGlassDelivery inserts a delivery manifest and its items.
func (s *Store) CreateGlassDelivery(ctx context.Context, delivery *GlassDelivery) (int64, error) {
	var id int64
	err := s.withTx(ctx, "create glass delivery", func(tx *sql.Tx) error {
		var err error
		id, err = insertGlassDeliveryTx(ctx, tx, delivery)
		return err
	})
	if err != nil {
		return 0, err
	}
	delivery.ID = id
	return id, nil
}

// ReplaceGlassDelivery atomically swaps any delivery with the same rack number.
func (s *Store) ReplaceGlassDelivery(ctx context.Context, delivery *GlassDelivery) (int64, bool, error) {
	var (
		id       int64
		replaced bool
	)
	err := s.withTx(ctx, "replace glass delivery", func(tx *sql.Tx) error {
		var err error
		if replaced, err = s.deleteByKeyTx(ctx, tx, "glass_delivery",
			`DELETE FROM glass_deliveries WHERE rack_number = ?`, delivery.RackNumber); err != nil {
			return err
		}
		id, err = insertGlassDeliveryTx(ctx, tx, delivery)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	delivery.ID = id
	return id, replaced, nil
}

func insertGlassDeliveryTx(ctx context.Context, tx *sql.Tx, delivery *GlassDelivery) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO glass_deliveries (rack_number, customer_order_number, supplier_order_number, delivery_date, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		delivery.RackNumber,
		nullableString(delivery.CustomerOrderNumber),
		nullableString(delivery.SupplierOrderNumber),
		nullableDate(delivery.DeliveryDate),
		nowString(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert glass delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	for _, item := range delivery.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO glass_delivery_items (glass_delivery_id, order_number, order_suffix, position, width_mm, height_mm, quantity, glass_composition, serial_number, client_code)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, item.OrderNumber, nullableString(item.OrderSuffix), nullableString(item.Position),
			item.WidthMM, item.HeightMM, item.Quantity,
			nullableString(item.GlassComposition), nullableString(item.SerialNumber), nullableString(item.ClientCode),
		); err != nil {
			return 0, fmt.Errorf("insert glass delivery item: %w", err)
		}
	}
	delivery.ItemCount = len(delivery.Items)
	return id, nil
}

func (s *Store) deleteByKeyTx(ctx context.Context, tx *sql.Tx, kind, query, key string) (bool, error) {
	res, err := tx.ExecContext(ctx, query, key)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if s.afterDelete != nil {
		if err := s.afterDelete(kind); err != nil {
			return false, err
		}
	}
	return affected > 0, nil
}
