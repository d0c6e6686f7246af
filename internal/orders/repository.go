package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"burger-pos/internal/database"
	"burger-pos/internal/models"
)

const uniqueViolation = "23505"

// StatusChange describes a status transition the repository must apply
// atomically: the status row update, optionally the completion
// timestamp, and optionally the table release.
type StatusChange struct {
	OrderID        int
	Status         models.OrderStatus
	SetCompletedAt bool
	ReleaseTableID *int
}

// PostgresRepository persists the order aggregate. It is the only
// writer of orders, order_items, and order_item_modifiers, and the only
// component that flips table occupancy.
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository creates the order repository.
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// NextDailySequence returns the next 1-based order sequence for the
// given day, derived from the highest already-allocated suffix.
func (r *PostgresRepository) NextDailySequence(ctx context.Context, day time.Time) (int, error) {
	pattern := "ORD-" + day.Format("20060102") + "-%"

	var sequence int
	if err := r.db.QueryRow(ctx, database.NextOrderSequenceSQL, pattern).Scan(&sequence); err != nil {
		return 0, storageError("next order sequence", err)
	}
	return sequence, nil
}

// CreateOrder persists the whole aggregate in one transaction: the
// order row, every item, every item modifier, and the table occupation
// for dine-in orders. Either all rows exist afterwards or none do.
// A collision on the order_number UNIQUE constraint surfaces as
// ErrDuplicateOrderNumber so the caller can regenerate and retry.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storageError("begin create order", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, database.InsertOrderSQL,
		order.OrderNumber,
		order.CustomerName,
		order.OrderType,
		order.TableID,
		order.Status,
		order.Subtotal,
		order.Tax,
		order.Discount,
		order.Total,
		order.PaymentMethod,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isOrderNumberConflict(err) {
			return fmt.Errorf("order number %s: %w", order.OrderNumber, models.ErrDuplicateOrderNumber)
		}
		return storageError("insert order", err)
	}

	for i := range items {
		item := &items[i]
		item.OrderID = order.ID

		err = tx.QueryRow(ctx, database.InsertOrderItemSQL,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
			item.SpecialInstructions,
		).Scan(&item.ID)
		if err != nil {
			return storageError("insert order item", err)
		}

		for j := range item.Modifiers {
			mod := &item.Modifiers[j]
			mod.OrderItemID = item.ID

			err = tx.QueryRow(ctx, database.InsertOrderItemModifierSQL,
				mod.OrderItemID,
				mod.ModifierID,
				mod.Quantity,
				mod.Price,
			).Scan(&mod.ID)
			if err != nil {
				return storageError("insert order item modifier", err)
			}
		}
	}

	if order.TableID != nil {
		if _, err := tx.Exec(ctx, database.SetTableStatusSQL, models.TableOccupied, *order.TableID); err != nil {
			return storageError("occupy table", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError("commit create order", err)
	}
	return nil
}

// GetOrder fetches a single order by id.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int) (*models.Order, error) {
	var order models.Order
	if err := scanOrder(r.db.QueryRow(ctx, database.GetOrderByIDSQL, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, models.ErrOrderNotFound)
		}
		return nil, storageError("get order", err)
	}
	return &order, nil
}

// GetOrderDetail fetches an order with its items and item modifiers,
// product and modifier names denormalized.
func (r *PostgresRepository) GetOrderDetail(ctx context.Context, id int) (*models.Order, []models.OrderItem, error) {
	order, err := r.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, database.GetOrderItemsSQL, id)
	if err != nil {
		return nil, nil, storageError("get order items", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	itemIndex := map[int]int{}
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.SpecialInstructions,
		)
		if err != nil {
			return nil, nil, storageError("scan order item", err)
		}
		item.Modifiers = []models.OrderItemModifier{}
		itemIndex[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, storageError("iterate order items", err)
	}

	modRows, err := r.db.Query(ctx, database.GetOrderItemModifiersSQL, id)
	if err != nil {
		return nil, nil, storageError("get order item modifiers", err)
	}
	defer modRows.Close()

	for modRows.Next() {
		var mod models.OrderItemModifier
		err := modRows.Scan(
			&mod.ID,
			&mod.OrderItemID,
			&mod.ModifierID,
			&mod.ModifierName,
			&mod.Quantity,
			&mod.Price,
		)
		if err != nil {
			return nil, nil, storageError("scan order item modifier", err)
		}
		if idx, ok := itemIndex[mod.OrderItemID]; ok {
			items[idx].Modifiers = append(items[idx].Modifiers, mod)
		}
	}
	if err := modRows.Err(); err != nil {
		return nil, nil, storageError("iterate order item modifiers", err)
	}

	return order, items, nil
}

// ListOrders fetches orders matching the filter, newest first.
func (r *PostgresRepository) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query, args := buildListOrdersQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("list orders", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, storageError("scan order", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ApplyStatusChange updates the order status and, when the change says
// so, sets completed_at and releases the table, all in one transaction.
func (r *PostgresRepository) ApplyStatusChange(ctx context.Context, change StatusChange) (*models.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storageError("begin status change", err)
	}
	defer tx.Rollback(ctx)

	patch := models.OrderPatch{
		Status:         &change.Status,
		SetCompletedAt: change.SetCompletedAt,
	}
	query, args := buildOrderUpdate(patch, change.OrderID)

	var order models.Order
	if err := scanOrder(tx.QueryRow(ctx, query, args...), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", change.OrderID, models.ErrOrderNotFound)
		}
		return nil, storageError("update order status", err)
	}

	if change.ReleaseTableID != nil {
		if _, err := tx.Exec(ctx, database.SetTableStatusSQL, models.TableAvailable, *change.ReleaseTableID); err != nil {
			return nil, storageError("release table", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit status change", err)
	}
	return &order, nil
}

// UpdatePayment sets the payment method on an order.
func (r *PostgresRepository) UpdatePayment(ctx context.Context, id int, method string) (*models.Order, error) {
	query, args := buildOrderUpdate(models.OrderPatch{PaymentMethod: &method}, id)

	var order models.Order
	if err := scanOrder(r.db.QueryRow(ctx, query, args...), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, models.ErrOrderNotFound)
		}
		return nil, storageError("update payment", err)
	}
	return &order, nil
}

// Ping reports storage reachability.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// buildOrderUpdate assembles a parameterized UPDATE from the provided
// patch fields only. Values always travel as parameters.
func buildOrderUpdate(patch models.OrderPatch, orderID int) (string, []interface{}) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.PaymentMethod != nil {
		args = append(args, *patch.PaymentMethod)
		sets = append(sets, fmt.Sprintf("payment_method = $%d", len(args)))
	}
	if patch.SetCompletedAt {
		sets = append(sets, "completed_at = NOW()")
	}

	args = append(args, orderID)
	query := fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), database.OrderColumns)

	return query, args
}

// buildListOrdersQuery assembles the list query from the provided
// filter fields only.
func buildListOrdersQuery(filter models.OrderFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT " + database.OrderColumns + " FROM orders WHERE 1=1")
	args := []interface{}{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if filter.OrderType != nil {
		args = append(args, *filter.OrderType)
		fmt.Fprintf(&sb, " AND order_type = $%d", len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		fmt.Fprintf(&sb, " AND created_at < $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d", len(args))

	return sb.String(), args
}

func scanOrder(row pgx.Row, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerName,
		&order.OrderType,
		&order.TableID,
		&order.Status,
		&order.Subtotal,
		&order.Tax,
		&order.Discount,
		&order.Total,
		&order.PaymentMethod,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.CompletedAt,
	)
}

func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		strings.Contains(pgErr.ConstraintName, "order_number")
}

// storageError keeps the taxonomy intact: deadline expiry maps to
// ErrTimeout, everything else to ErrStorage with the cause preserved
// in the message.
func storageError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, models.ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrStorage, err)
}
