package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const orderColumns = "id, order_number, client, project, system, deadline, pvc_delivery_date, document_author, total_windows, total_sashes, total_glasses, created_at, updated_at"

func scanOrder(scanner interface{ Scan(dest ...any) error }) (*Order, error) {
	var (
		order       Order
		client      sql.NullString
		project     sql.NullString
		system      sql.NullString
		deadline    sql.NullString
		pvcDelivery sql.NullString
		author      sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&order.ID,
		&order.OrderNumber,
		&client,
		&project,
		&system,
		&deadline,
		&pvcDelivery,
		&author,
		&order.TotalWindows,
		&order.TotalSashes,
		&order.TotalGlasses,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	order.Client = client.String
	order.Project = project.String
	order.System = system.String
	order.Deadline = deadline.String
	order.PVCDeliveryDate = pvcDelivery.String
	order.DocumentAuthor = author.String
	if created, err := parseTimeString(createdRaw); err == nil {
		order.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		order.UpdatedAt = updated
	}
	return &order, nil
}

// FindOrderByNumber returns the order header for an exact order number, or nil.
func (s *Store) FindOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+orderColumns+` FROM orders WHERE order_number = ?`, orderNumber)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("find order", err)
	}
	return order, nil
}

// LoadOrder returns an order with its line items, or nil.
func (s *Store) LoadOrder(ctx context.Context, orderNumber string) (*Order, error) {
	order, err := s.FindOrderByNumber(ctx, orderNumber)
	if err != nil || order == nil {
		return order, err
	}
	ctx = ensureContext(ctx)

	reqRows, err := s.db.QueryContext(ctx,
		`SELECT article_number, profile_number, color_code, beams, rest_mm FROM order_requirements WHERE order_id = ? ORDER BY id`, order.ID)
	if err != nil {
		return nil, classify("load requirements", err)
	}
	defer reqRows.Close()
	for reqRows.Next() {
		var r Requirement
		if err := reqRows.Scan(&r.ArticleNumber, &r.ProfileNumber, &r.ColorCode, &r.Beams, &r.RestMM); err != nil {
			return nil, err
		}
		order.Requirements = append(order.Requirements, r)
	}
	if err := reqRows.Err(); err != nil {
		return nil, err
	}

	winRows, err := s.db.QueryContext(ctx,
		`SELECT position, width_mm, height_mm, COALESCE(profile_type, ''), quantity, COALESCE(reference, '') FROM order_windows WHERE order_id = ? ORDER BY position, id`, order.ID)
	if err != nil {
		return nil, classify("load windows", err)
	}
	defer winRows.Close()
	for winRows.Next() {
		var w Window
		if err := winRows.Scan(&w.Position, &w.WidthMM, &w.HeightMM, &w.ProfileType, &w.Quantity, &w.Reference); err != nil {
			return nil, err
		}
		order.Windows = append(order.Windows, w)
	}
	if err := winRows.Err(); err != nil {
		return nil, err
	}

	glassRows, err := s.db.QueryContext(ctx,
		`SELECT position, width_mm, height_mm, quantity, COALESCE(package_type, '') FROM order_glasses WHERE order_id = ? ORDER BY position, id`, order.ID)
	if err != nil {
		return nil, classify("load glasses", err)
	}
	defer glassRows.Close()
	for glassRows.Next() {
		var g Glass
		if err := glassRows.Scan(&g.Position, &g.WidthMM, &g.HeightMM, &g.Quantity, &g.PackageType); err != nil {
			return nil, err
		}
		order.Glasses = append(order.Glasses, g)
	}
	return order, glassRows.Err()
}

// CreateOrder inserts a new order with its line items. An existing order
// number fails with services.ErrDuplicate.
func (s *Store) CreateOrder(ctx context.Context, order *Order) (int64, error) {
	var id int64
	err := s.withTx(ctx, "create order", func(tx *sql.Tx) error {
		var err error
		id, err = insertOrderTx(ctx, tx, order)
		return err
	})
	if err != nil {
		return 0, err
	}
	order.ID = id
	return id, nil
}

// ReplaceOrder deletes any order with the same number and inserts the
// replacement in one transaction. A failure leaves the prior order intact.
func (s *Store) ReplaceOrder(ctx context.Context, order *Order) (int64, bool, error) {
	var (
		id       int64
		replaced bool
	)
	err := s.withTx(ctx, "replace order", func(tx *sql.Tx) error {
		var err error
		if replaced, err = s.deleteByKeyTx(ctx, tx, "order",
			`DELETE FROM orders WHERE order_number = ?`, order.OrderNumber); err != nil {
			return err
		}
		id, err = insertOrderTx(ctx, tx, order)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	order.ID = id
	return id, replaced, nil
}

func insertOrderTx(ctx context.Context, tx *sql.Tx, order *Order) (int64, error) {
	now := nowString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (
            order_number, client, project, system, deadline, pvc_delivery_date, document_author,
            total_windows, total_sashes, total_glasses, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderNumber,
		nullableString(order.Client),
		nullableString(order.Project),
		nullableString(order.System),
		nullableString(order.Deadline),
		nullableString(order.PVCDeliveryDate),
		nullableString(order.DocumentAuthor),
		order.TotalWindows,
		order.TotalSashes,
		order.TotalGlasses,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, r := range order.Requirements {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_requirements (order_id, article_number, profile_number, color_code, beams, rest_mm) VALUES (?, ?, ?, ?, ?, ?)`,
			id, r.ArticleNumber, r.ProfileNumber, r.ColorCode, r.Beams, r.RestMM,
		); err != nil {
			return 0, fmt.Errorf("insert requirement: %w", err)
		}
	}
	for _, w := range order.Windows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_windows (order_id, position, width_mm, height_mm, profile_type, quantity, reference) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, w.Position, w.WidthMM, w.HeightMM, nullableString(w.ProfileType), w.Quantity, nullableString(w.Reference),
		); err != nil {
			return 0, fmt.Errorf("insert window: %w", err)
		}
	}
	for _, g := range order.Glasses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_glasses (order_id, position, width_mm, height_mm, quantity, package_type) VALUES (?, ?, ?, ?, ?, ?)`,
			id, g.Position, g.WidthMM, g.HeightMM, g.Quantity, nullableString(g.PackageType),
		); err != nil {
			return 0, fmt.Errorf("insert glass: %w", err)
		}
	}
	return id, nil
}
