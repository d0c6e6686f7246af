package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"burger-pos/internal/cache"
	"burger-pos/internal/logger"
	"burger-pos/internal/models"
	"burger-pos/internal/pricing"
)

const (
	// maxCreateAttempts bounds the retry loop for order-number
	// allocation under concurrent creation.
	maxCreateAttempts = 5
	createBackoffBase = 25 * time.Millisecond

	detailCacheTTL = 30 * time.Second
)

// Catalog resolves products and modifiers at order time.
type Catalog interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetModifier(ctx context.Context, id int) (*models.Modifier, error)
}

// Repository is the persistence boundary for the order aggregate.
type Repository interface {
	NextDailySequence(ctx context.Context, day time.Time) (int, error)
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrder(ctx context.Context, id int) (*models.Order, error)
	GetOrderDetail(ctx context.Context, id int) (*models.Order, []models.OrderItem, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	ApplyStatusChange(ctx context.Context, change StatusChange) (*models.Order, error)
	UpdatePayment(ctx context.Context, id int, method string) (*models.Order, error)
	Ping(ctx context.Context) error
}

// EventPublisher emits order lifecycle events. Publishing failures are
// logged, never propagated: the kitchen feed is best-effort.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error
	PublishStatusChanged(ctx context.Context, event models.OrderStatusChangedEvent) error
}

// Service is the order engine: it validates carts, resolves them
// against the catalog, prices them, and drives the order lifecycle.
type Service struct {
	repo            Repository
	catalog         Catalog
	pricer          *pricing.Engine
	publisher       EventPublisher
	cache           cache.Cache
	logger          *logger.Logger
	strictModifiers bool
}

// NewService creates the order engine. publisher and detailCache may be
// nil, which disables event publishing and detail caching respectively.
// strictModifiers controls whether an unresolvable modifier fails the
// order or is skipped with a warning.
func NewService(
	repo Repository,
	cat Catalog,
	pricer *pricing.Engine,
	publisher EventPublisher,
	detailCache cache.Cache,
	log *logger.Logger,
	strictModifiers bool,
) *Service {
	return &Service{
		repo:            repo,
		catalog:         cat,
		pricer:          pricer,
		publisher:       publisher,
		cache:           detailCache,
		logger:          log,
		strictModifiers: strictModifiers,
	}
}

// CreateOrder validates and prices a cart, then persists the order
// aggregate atomically. The returned order is pending and carries a
// fresh ORD-YYYYMMDD-NNNN number.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest, requestID string) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines, items, err := s.resolveCart(ctx, req.Items, requestID)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricer.Price(lines, decimal.Zero)
	if err != nil {
		return nil, err
	}
	applyQuote(items, quote)

	order := &models.Order{
		CustomerName:  req.CustomerName,
		OrderType:     models.OrderType(req.OrderType),
		TableID:       req.TableID,
		Status:        models.StatusPending,
		Subtotal:      quote.Subtotal,
		Tax:           quote.Tax,
		Discount:      decimal.Zero,
		Total:         quote.Total,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}

	if err := s.persistWithNumber(ctx, order, items, requestID); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, order, items, requestID)
	return order, nil
}

// RecallOrder recreates a past order as a fresh pending order: same
// validation and pricing pipeline, no modifiers, discount forced to 0,
// payment method unset.
func (s *Service) RecallOrder(ctx context.Context, req *models.RecallOrderRequest, requestID string) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(req.Items))
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		product, err := s.catalog.GetProduct(ctx, reqItem.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, pricing.Line{
			ProductID: product.ID,
			UnitPrice: product.Price,
			Available: product.IsAvailable,
			Quantity:  reqItem.Quantity,
		})
		items = append(items, models.OrderItem{
			ProductID:           product.ID,
			ProductName:         product.Name,
			Quantity:            reqItem.Quantity,
			SpecialInstructions: reqItem.SpecialInstructions,
			Modifiers:           []models.OrderItemModifier{},
		})
	}

	quote, err := s.pricer.Price(lines, decimal.Zero)
	if err != nil {
		return nil, err
	}
	applyQuote(items, quote)

	var customerName *string
	if req.CustomerName != "" {
		customerName = &req.CustomerName
	}

	order := &models.Order{
		CustomerName: customerName,
		OrderType:    models.OrderType(req.OrderType),
		Status:       models.StatusPending,
		Subtotal:     quote.Subtotal,
		Tax:          quote.Tax,
		Discount:     decimal.Zero,
		Total:        quote.Total,
		Notes:        req.Notes,
	}

	if err := s.persistWithNumber(ctx, order, items, requestID); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, order, items, requestID)
	return order, nil
}

// UpdateStatus moves an order to one of the five accepted statuses.
// Transitioning to completed sets completed_at and releases the order's
// table; both happen atomically with the status write.
func (s *Service) UpdateStatus(ctx context.Context, id int, newStatus, requestID string) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("status %q: %w", newStatus, models.ErrInvalidStatus)
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status

	change := StatusChange{
		OrderID: id,
		Status:  models.OrderStatus(newStatus),
	}
	if change.Status == models.StatusCompleted {
		change.SetCompletedAt = true
		change.ReleaseTableID = order.TableID
	}

	updated, err := s.repo.ApplyStatusChange(ctx, change)
	if err != nil {
		return nil, err
	}

	s.invalidateDetail(ctx, id)

	if s.publisher != nil {
		event := models.OrderStatusChangedEvent{
			OrderNumber: updated.OrderNumber,
			OldStatus:   oldStatus,
			NewStatus:   updated.Status,
			ChangedAt:   updated.UpdatedAt,
		}
		if err := s.publisher.PublishStatusChanged(ctx, event); err != nil {
			s.logger.Error("event_publish_failed", "Failed to publish status change", requestID, err, map[string]interface{}{
				"order_number": updated.OrderNumber,
			})
		}
	}

	return updated, nil
}

// UpdatePayment sets the payment method without touching totals.
func (s *Service) UpdatePayment(ctx context.Context, id int, method string) (*models.Order, error) {
	order, err := s.repo.UpdatePayment(ctx, id, method)
	if err != nil {
		return nil, err
	}
	s.invalidateDetail(ctx, id)
	return order, nil
}

// GetOrderDetail returns the order with its items and modifiers,
// served from the detail cache when one is configured.
func (s *Service) GetOrderDetail(ctx context.Context, id int) (*models.OrderDetail, error) {
	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.GenerateKey("order_detail", strconv.Itoa(id))
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var detail models.OrderDetail
			if err := json.Unmarshal([]byte(cached), &detail); err == nil {
				return &detail, nil
			}
		}
	}

	order, items, err := s.repo.GetOrderDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.OrderDetail{Order: *order, Items: items}

	if s.cache != nil {
		if body, err := json.Marshal(detail); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(body), detailCacheTTL); err != nil {
				s.logger.Debug("cache_set_failed", "Failed to cache order detail", "", map[string]interface{}{
					"order_id": id,
				})
			}
		}
	}

	return detail, nil
}

// ListOrders returns orders matching the filter, newest first.
func (s *Service) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

// HealthCheck reports whether the storage backend is reachable.
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.repo.Ping(ctx) == nil
}

// resolveCart looks every product and modifier up in the catalog and
// builds pricing lines plus order-item skeletons with snapshot prices.
func (s *Service) resolveCart(ctx context.Context, cart []models.CartItem, requestID string) ([]pricing.Line, []models.OrderItem, error) {
	lines := make([]pricing.Line, 0, len(cart))
	items := make([]models.OrderItem, 0, len(cart))

	for _, cartItem := range cart {
		product, err := s.catalog.GetProduct(ctx, cartItem.ProductID)
		if err != nil {
			return nil, nil, err
		}

		line := pricing.Line{
			ProductID: product.ID,
			UnitPrice: product.Price,
			Available: product.IsAvailable,
			Quantity:  cartItem.Quantity,
		}
		item := models.OrderItem{
			ProductID:           product.ID,
			ProductName:         product.Name,
			Quantity:            cartItem.Quantity,
			SpecialInstructions: cartItem.SpecialInstructions,
			Modifiers:           []models.OrderItemModifier{},
		}

		for _, cartMod := range cartItem.Modifiers {
			quantity := cartMod.Quantity
			if quantity == 0 {
				quantity = 1
			}

			modifier, err := s.catalog.GetModifier(ctx, cartMod.ModifierID)
			if err != nil {
				if errors.Is(err, models.ErrModifierNotFound) && !s.strictModifiers {
					s.logger.Info("modifier_skipped", "Skipping unresolvable modifier (lenient policy)", requestID, map[string]interface{}{
						"modifier_id": cartMod.ModifierID,
						"product_id":  cartItem.ProductID,
					})
					continue
				}
				return nil, nil, err
			}

			line.Modifiers = append(line.Modifiers, pricing.ModifierCharge{
				ModifierID: modifier.ID,
				Price:      modifier.Price,
				Quantity:   quantity,
			})
			item.Modifiers = append(item.Modifiers, models.OrderItemModifier{
				ModifierID:   modifier.ID,
				ModifierName: modifier.Name,
				Quantity:     quantity,
				Price:        modifier.Price,
			})
		}

		lines = append(lines, line)
		items = append(items, item)
	}

	return lines, items, nil
}

// persistWithNumber allocates a daily sequence number and persists the
// aggregate, retrying with exponential backoff when a concurrent
// creation wins the same number.
func (s *Service) persistWithNumber(ctx context.Context, order *models.Order, items []models.OrderItem, requestID string) error {
	var lastErr error

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		if attempt > 0 {
			backoff := createBackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return fmt.Errorf("order creation: %w", models.ErrTimeout)
				}
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		now := time.Now().UTC()
		sequence, err := s.repo.NextDailySequence(ctx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = models.GenerateOrderNumber(now, sequence)

		err = s.repo.CreateOrder(ctx, order, items)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrDuplicateOrderNumber) {
			return err
		}

		lastErr = err
		s.logger.Debug("order_number_conflict", "Order number taken, retrying", requestID, map[string]interface{}{
			"order_number": order.OrderNumber,
			"attempt":      attempt + 1,
		})
	}

	return fmt.Errorf("%w after %d attempts: %v", models.ErrOrderCreationConflict, maxCreateAttempts, lastErr)
}

func (s *Service) publishCreated(ctx context.Context, order *models.Order, items []models.OrderItem, requestID string) {
	if s.publisher == nil {
		return
	}

	event := models.OrderCreatedEvent{
		OrderNumber: order.OrderNumber,
		OrderType:   order.OrderType,
		TableID:     order.TableID,
		Items:       make([]models.OrderItemEvent, 0, len(items)),
		Total:       order.Total,
		CreatedAt:   order.CreatedAt,
	}
	for _, item := range items {
		event.Items = append(event.Items, models.OrderItemEvent{
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish order created", requestID, err, map[string]interface{}{
			"order_number": order.OrderNumber,
		})
	}
}

func (s *Service) invalidateDetail(ctx context.Context, id int) {
	if s.cache == nil {
		return
	}
	key := s.cache.GenerateKey("order_detail", strconv.Itoa(id))
	if err := s.cache.Del(ctx, key); err != nil {
		s.logger.Debug("cache_del_failed", "Failed to invalidate order detail", "", map[string]interface{}{
			"order_id": id,
		})
	}
}

func applyQuote(items []models.OrderItem, quote *pricing.Quote) {
	for i := range items {
		items[i].UnitPrice = quote.Lines[i].UnitPrice
		items[i].Subtotal = quote.Lines[i].Subtotal
	}
}
