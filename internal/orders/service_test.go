package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"burger-pos/internal/logger"
	"burger-pos/internal/models"
	"burger-pos/internal/pricing"
)

type fakeCatalog struct {
	products  map[int]models.Product
	modifiers map[int]models.Modifier
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int) (*models.Product, error) {
	product, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrProductUnavailable)
	}
	return &product, nil
}

func (c *fakeCatalog) GetModifier(_ context.Context, id int) (*models.Modifier, error) {
	modifier, ok := c.modifiers[id]
	if !ok {
		return nil, fmt.Errorf("modifier %d: %w", id, models.ErrModifierNotFound)
	}
	return &modifier, nil
}

type fakeRepo struct {
	sequence      int
	conflictsLeft int
	created       []models.Order
	createdItems  [][]models.OrderItem

	orders        map[int]models.Order
	statusChanges []StatusChange
	payments      map[int]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:   map[int]models.Order{},
		payments: map[int]string{},
	}
}

func (r *fakeRepo) NextDailySequence(_ context.Context, _ time.Time) (int, error) {
	r.sequence++
	return r.sequence, nil
}

func (r *fakeRepo) CreateOrder(_ context.Context, order *models.Order, items []models.OrderItem) error {
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return fmt.Errorf("order number %s: %w", order.OrderNumber, models.ErrDuplicateOrderNumber)
	}
	order.ID = len(r.created) + 1
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	r.created = append(r.created, *order)
	r.createdItems = append(r.createdItems, items)
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeRepo) GetOrder(_ context.Context, id int) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrOrderNotFound)
	}
	return &order, nil
}

func (r *fakeRepo) GetOrderDetail(ctx context.Context, id int) (*models.Order, []models.OrderItem, error) {
	order, err := r.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, []models.OrderItem{}, nil
}

func (r *fakeRepo) ListOrders(_ context.Context, _ models.OrderFilter) ([]models.Order, error) {
	return r.created, nil
}

func (r *fakeRepo) ApplyStatusChange(_ context.Context, change StatusChange) (*models.Order, error) {
	order, ok := r.orders[change.OrderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", change.OrderID, models.ErrOrderNotFound)
	}
	r.statusChanges = append(r.statusChanges, change)
	order.Status = change.Status
	order.UpdatedAt = time.Now().UTC()
	if change.SetCompletedAt {
		now := order.UpdatedAt
		order.CompletedAt = &now
	}
	r.orders[change.OrderID] = order
	return &order, nil
}

func (r *fakeRepo) UpdatePayment(_ context.Context, id int, method string) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrOrderNotFound)
	}
	r.payments[id] = method
	order.PaymentMethod = &method
	r.orders[id] = order
	return &order, nil
}

func (r *fakeRepo) Ping(_ context.Context) error {
	return nil
}

type fakePublisher struct {
	created []models.OrderCreatedEvent
	status  []models.OrderStatusChangedEvent
}

func (p *fakePublisher) PublishOrderCreated(_ context.Context, event models.OrderCreatedEvent) error {
	p.created = append(p.created, event)
	return nil
}

func (p *fakePublisher) PublishStatusChanged(_ context.Context, event models.OrderStatusChangedEvent) error {
	p.status = append(p.status, event)
	return nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int]models.Product{
			1: {ID: 1, Name: "Classic Burger", Price: decimal.RequireFromString("10.00"), IsAvailable: true},
			2: {ID: 2, Name: "Fries", Price: decimal.RequireFromString("3.25"), IsAvailable: true},
			3: {ID: 3, Name: "Seasonal Special", Price: decimal.RequireFromString("12.00"), IsAvailable: false},
		},
		modifiers: map[int]models.Modifier{
			10: {ID: 10, Name: "Extra Cheese", Price: decimal.RequireFromString("1.50"), Type: models.ModifierExtra},
		},
	}
}

func newTestService(repo *fakeRepo, pub *fakePublisher, strict bool) *Service {
	engine := pricing.NewEngine(decimal.RequireFromString("0.10"))
	var publisher EventPublisher
	if pub != nil {
		publisher = pub
	}
	return NewService(repo, testCatalog(), engine, publisher, nil, logger.New("orders-test"), strict)
}

func TestCreateOrderTotals(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	service := newTestService(repo, pub, true)

	order, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items: []models.CartItem{
			{ProductID: 1, Quantity: 2, Modifiers: []models.CartModifier{{ModifierID: 10, Quantity: 2}}},
		},
	}, "req-1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if got := order.Subtotal.String(); got != "26" && got != "26.00" {
		t.Errorf("subtotal = %s, want 26.00", got)
	}
	if got := order.Tax.String(); got != "2.6" && got != "2.60" {
		t.Errorf("tax = %s, want 2.60", got)
	}
	if got := order.Total.String(); got != "28.6" && got != "28.60" {
		t.Errorf("total = %s, want 28.60", got)
	}
	if order.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}

	wantNumber := models.GenerateOrderNumber(time.Now().UTC(), 1)
	if order.OrderNumber != wantNumber {
		t.Errorf("order number = %s, want %s", order.OrderNumber, wantNumber)
	}

	if len(repo.createdItems) != 1 || len(repo.createdItems[0]) != 1 {
		t.Fatalf("expected one persisted item, got %v", repo.createdItems)
	}
	item := repo.createdItems[0][0]
	if !item.UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("item unit price = %s, want 10.00", item.UnitPrice)
	}
	if !item.Subtotal.Equal(decimal.RequireFromString("26.00")) {
		t.Errorf("item subtotal = %s, want 26.00", item.Subtotal)
	}

	if len(pub.created) != 1 {
		t.Fatalf("expected one order.created event, got %d", len(pub.created))
	}
	if pub.created[0].OrderNumber != order.OrderNumber {
		t.Errorf("event order number = %s, want %s", pub.created[0].OrderNumber, order.OrderNumber)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	_, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
	}, "req-1")
	if !errors.Is(err, models.ErrEmptyOrder) {
		t.Fatalf("error = %v, want ErrEmptyOrder", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("order was persisted despite empty cart")
	}
}

func TestCreateOrderUnavailableProduct(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	_, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items: []models.CartItem{
			{ProductID: 1, Quantity: 1},
			{ProductID: 3, Quantity: 1},
		},
	}, "req-1")
	if !errors.Is(err, models.ErrProductUnavailable) {
		t.Fatalf("error = %v, want ErrProductUnavailable", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("order was persisted despite unavailable product")
	}
}

func TestCreateOrderNumberRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.conflictsLeft = 2
	service := newTestService(repo, nil, true)

	order, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items:     []models.CartItem{{ProductID: 1, Quantity: 1}},
	}, "req-1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	// Two conflicts burn sequences 1 and 2; the surviving order gets 3.
	wantNumber := models.GenerateOrderNumber(time.Now().UTC(), 3)
	if order.OrderNumber != wantNumber {
		t.Errorf("order number = %s, want %s", order.OrderNumber, wantNumber)
	}
	if len(repo.created) != 1 {
		t.Errorf("persisted orders = %d, want 1", len(repo.created))
	}
}

func TestCreateOrderNumberConflictExhausted(t *testing.T) {
	repo := newFakeRepo()
	repo.conflictsLeft = maxCreateAttempts
	service := newTestService(repo, nil, true)

	_, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items:     []models.CartItem{{ProductID: 1, Quantity: 1}},
	}, "req-1")
	if !errors.Is(err, models.ErrOrderCreationConflict) {
		t.Fatalf("error = %v, want ErrOrderCreationConflict", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("order was persisted despite exhausted retries")
	}
}

func TestCreateOrderStrictModifierPolicy(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	_, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items: []models.CartItem{
			{ProductID: 1, Quantity: 1, Modifiers: []models.CartModifier{{ModifierID: 999}}},
		},
	}, "req-1")
	if !errors.Is(err, models.ErrModifierNotFound) {
		t.Fatalf("error = %v, want ErrModifierNotFound", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("order was persisted despite unknown modifier")
	}
}

func TestCreateOrderLenientModifierPolicy(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, false)

	order, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items: []models.CartItem{
			{ProductID: 1, Quantity: 1, Modifiers: []models.CartModifier{{ModifierID: 999}}},
		},
	}, "req-1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	// Unknown modifier skipped: the product alone prices the order.
	if !order.Total.Equal(decimal.RequireFromString("11.00")) {
		t.Errorf("total = %s, want 11.00", order.Total)
	}
	if mods := repo.createdItems[0][0].Modifiers; len(mods) != 0 {
		t.Errorf("persisted modifiers = %d, want 0", len(mods))
	}
}

func TestCreateOrderModifierQuantityDefaults(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	order, err := service.CreateOrder(context.Background(), &models.CreateOrderRequest{
		OrderType: "takeout",
		Items: []models.CartItem{
			{ProductID: 2, Quantity: 1, Modifiers: []models.CartModifier{{ModifierID: 10}}},
		},
	}, "req-1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	// 3.25 + 1.50 = 4.75, tax 0.48, total 5.23
	if !order.Total.Equal(decimal.RequireFromString("5.23")) {
		t.Errorf("total = %s, want 5.23", order.Total)
	}
	if qty := repo.createdItems[0][0].Modifiers[0].Quantity; qty != 1 {
		t.Errorf("modifier quantity = %d, want 1 (default)", qty)
	}
}

func TestUpdateStatusCompletedReleasesTable(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	service := newTestService(repo, pub, true)

	tableID := 7
	repo.orders[1] = models.Order{
		ID:          1,
		OrderNumber: "ORD-20260828-0001",
		Status:      models.StatusReady,
		TableID:     &tableID,
	}

	updated, err := service.UpdateStatus(context.Background(), 1, "completed", "req-1")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", updated.Status)
	}

	if len(repo.statusChanges) != 1 {
		t.Fatalf("status changes = %d, want 1", len(repo.statusChanges))
	}
	change := repo.statusChanges[0]
	if !change.SetCompletedAt {
		t.Error("SetCompletedAt not requested on completion")
	}
	if change.ReleaseTableID == nil || *change.ReleaseTableID != tableID {
		t.Errorf("ReleaseTableID = %v, want %d", change.ReleaseTableID, tableID)
	}

	if len(pub.status) != 1 {
		t.Fatalf("expected one status event, got %d", len(pub.status))
	}
	if pub.status[0].OldStatus != models.StatusReady || pub.status[0].NewStatus != models.StatusCompleted {
		t.Errorf("event transition = %s -> %s, want ready -> completed",
			pub.status[0].OldStatus, pub.status[0].NewStatus)
	}
}

func TestUpdateStatusCancelledKeepsTable(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	tableID := 7
	repo.orders[1] = models.Order{
		ID:      1,
		Status:  models.StatusPending,
		TableID: &tableID,
	}

	if _, err := service.UpdateStatus(context.Background(), 1, "cancelled", "req-1"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	change := repo.statusChanges[0]
	if change.SetCompletedAt {
		t.Error("cancellation must not set completed_at")
	}
	if change.ReleaseTableID != nil {
		t.Error("cancellation must not release the table")
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	_, err := service.UpdateStatus(context.Background(), 1, "delivered", "req-1")
	if !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("error = %v, want ErrInvalidStatus", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	_, err := service.UpdateStatus(context.Background(), 42, "preparing", "req-1")
	if !errors.Is(err, models.ErrOrderNotFound) {
		t.Fatalf("error = %v, want ErrOrderNotFound", err)
	}
}

func TestUpdatePayment(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	repo.orders[1] = models.Order{ID: 1, Status: models.StatusPending}

	order, err := service.UpdatePayment(context.Background(), 1, "card")
	if err != nil {
		t.Fatalf("UpdatePayment() error = %v", err)
	}
	if order.PaymentMethod == nil || *order.PaymentMethod != "card" {
		t.Errorf("payment method = %v, want card", order.PaymentMethod)
	}
}

func TestRecallOrderDefaults(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	order, err := service.RecallOrder(context.Background(), &models.RecallOrderRequest{
		CustomerName: "Dana",
		OrderType:    "takeout",
		Items:        []models.RecallItem{{ProductID: 1, Quantity: 1}},
	}, "req-1")
	if err != nil {
		t.Fatalf("RecallOrder() error = %v", err)
	}

	if order.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if !order.Discount.IsZero() {
		t.Errorf("discount = %s, want 0", order.Discount)
	}
	if order.PaymentMethod != nil {
		t.Errorf("payment method = %v, want nil", order.PaymentMethod)
	}
	if order.CustomerName == nil || *order.CustomerName != "Dana" {
		t.Errorf("customer name = %v, want Dana", order.CustomerName)
	}
	if !order.Total.Equal(decimal.RequireFromString("11.00")) {
		t.Errorf("total = %s, want 11.00", order.Total)
	}
}

func TestGetOrderDetail(t *testing.T) {
	repo := newFakeRepo()
	service := newTestService(repo, nil, true)

	repo.orders[1] = models.Order{ID: 1, OrderNumber: "ORD-20260828-0001", Status: models.StatusPending}

	detail, err := service.GetOrderDetail(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetOrderDetail() error = %v", err)
	}
	if detail.Order.OrderNumber != "ORD-20260828-0001" {
		t.Errorf("order number = %s", detail.Order.OrderNumber)
	}

	if _, err := service.GetOrderDetail(context.Background(), 42); !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("error = %v, want ErrOrderNotFound", err)
	}
}
