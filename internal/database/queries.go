package database

// OrderColumns is the canonical column list for scanning an order row.
const OrderColumns = `id, order_number, customer_name, order_type, table_id, status,
	subtotal, tax, discount, total, payment_method, notes, created_at, updated_at, completed_at`

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (order_number, customer_name, order_type, table_id,
			status, subtotal, tax, discount, total, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, special_instructions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	InsertOrderItemModifierSQL = `
		INSERT INTO order_item_modifiers (order_item_id, modifier_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	GetOrderByIDSQL = `
		SELECT ` + OrderColumns + `
		FROM orders WHERE id = $1`

	GetOrderItemsSQL = `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity,
			   oi.unit_price, oi.subtotal, oi.special_instructions
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`

	GetOrderItemModifiersSQL = `
		SELECT oim.id, oim.order_item_id, oim.modifier_id, m.name, oim.quantity, oim.price
		FROM order_item_modifiers oim
		JOIN modifiers m ON oim.modifier_id = m.id
		JOIN order_items oi ON oim.order_item_id = oi.id
		WHERE oi.order_id = $1
		ORDER BY oim.id`

	// NextOrderSequenceSQL computes the next 1-based daily sequence from the
	// highest suffix already allocated, not a row count, so cancelled
	// attempts never produce duplicates.
	NextOrderSequenceSQL = `
		SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 'ORD-[0-9]{8}-([0-9]{4})') AS INTEGER)), 0) + 1
		FROM orders
		WHERE order_number LIKE $1`
)

// Catalog and table queries
const (
	GetProductSQL = `
		SELECT id, name, price, is_available, created_at
		FROM products WHERE id = $1`

	GetModifierSQL = `
		SELECT id, name, price, modifier_type, created_at
		FROM modifiers WHERE id = $1`

	SetTableStatusSQL = `
		UPDATE tables SET status = $1 WHERE id = $2`
)
