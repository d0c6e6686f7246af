package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"burger-pos/internal/logger"
	"burger-pos/internal/models"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// OrderService is the surface the HTTP layer needs from the order
// engine.
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest, requestID string) (*models.Order, error)
	RecallOrder(ctx context.Context, req *models.RecallOrderRequest, requestID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	GetOrderDetail(ctx context.Context, id int) (*models.OrderDetail, error)
	UpdateStatus(ctx context.Context, id int, newStatus, requestID string) (*models.Order, error)
	UpdatePayment(ctx context.Context, id int, method string) (*models.Order, error)
	HealthCheck(ctx context.Context) bool
}

// Handler handles HTTP requests for the order service.
type Handler struct {
	service OrderService
	logger  *logger.Logger
	timeout time.Duration
}

// NewHandler creates a new order handler. timeout bounds every request.
func NewHandler(service OrderService, log *logger.Logger, timeout time.Duration) *Handler {
	return &Handler{
		service: service,
		logger:  log,
		timeout: timeout,
	}
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.withLogging)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Post("/recall", h.RecallOrder)
		r.Get("/{id}/details", h.GetOrderDetail)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Put("/{id}/payment", h.UpdatePayment)
	})
	r.Get("/health", h.HealthCheck)

	return r
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var req models.CreateOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.CreateOrder(ctx, &req, requestID)
	if err != nil {
		h.respondError(w, err, requestID)
		return
	}

	h.logger.Debug("order_created", "Order created", requestID, map[string]interface{}{
		"order_number": order.OrderNumber,
		"total":        order.Total.String(),
	})
	writeJSON(w, http.StatusCreated, order)
}

// RecallOrder handles POST /orders/recall.
func (h *Handler) RecallOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var req models.RecallOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.RecallOrder(ctx, &req, requestID)
	if err != nil {
		h.respondError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	filter, err := parseOrderFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_filter", err.Error(), requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.service.ListOrders(ctx, filter)
	if err != nil {
		h.respondError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetOrderDetail handles GET /orders/{id}/details.
func (h *Handler) GetOrderDetail(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := orderID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_order_id", "Order id must be an integer", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	detail, err := h.service.GetOrderDetail(ctx, id)
	if err != nil {
		h.respondError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := orderID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_order_id", "Order id must be an integer", requestID)
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.UpdateStatus(ctx, id, req.Status, requestID)
	if err != nil {
		h.respondError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdatePayment handles PUT /orders/{id}/payment.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := orderID(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_order_id", "Order id must be an integer", requestID)
		return
	}

	var req models.UpdatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON format", requestID)
		return
	}
	if req.PaymentMethod == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_payment_method", "payment_method is required", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.UpdatePayment(ctx, id, req.PaymentMethod)
	if err != nil {
		h.respondError(w, err, requestID)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.service.HealthCheck(ctx)

	status := http.StatusOK
	body := map[string]interface{}{
		"status":    "ok",
		"service":   "pos-backend",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if !healthy {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
	}

	writeJSON(w, status, body)
}

// respondError maps the error taxonomy onto HTTP status codes.
func (h *Handler) respondError(w http.ResponseWriter, err error, requestID string) {
	var ve models.ValidationError

	switch {
	case errors.Is(err, models.ErrEmptyOrder):
		h.writeError(w, http.StatusBadRequest, "empty_order", err.Error(), requestID)
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, "validation_failed", ve.Error(), requestID)
	case errors.Is(err, models.ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, "invalid_status", err.Error(), requestID)
	case errors.Is(err, models.ErrProductUnavailable),
		errors.Is(err, models.ErrModifierNotFound),
		errors.Is(err, models.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, models.ErrOrderCreationConflict):
		h.writeError(w, http.StatusConflict, "order_creation_conflict", err.Error(), requestID)
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "timeout", "Request timed out", requestID)
	default:
		h.logger.Error("request_failed", "Unhandled error", requestID, err, nil)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error", requestID)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, map[string]interface{}{
		"error":      code,
		"message":    message,
		"request_id": requestID,
	})
}

// withLogging assigns a request id and logs request start/end.
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID, map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.status),
			requestID, map[string]interface{}{
				"status_code": rw.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func orderID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func parseOrderFilter(r *http.Request) (models.OrderFilter, error) {
	var filter models.OrderFilter
	query := r.URL.Query()

	if v := query.Get("status"); v != "" {
		if !models.ValidOrderStatus(v) {
			return filter, fmt.Errorf("unknown status %q", v)
		}
		filter.Status = &v
	}
	if v := query.Get("order_type"); v != "" {
		filter.OrderType = &v
	}
	if v := query.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, fmt.Errorf("date_from must be YYYY-MM-DD")
		}
		filter.DateFrom = &t
	}
	if v := query.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, fmt.Errorf("date_to must be YYYY-MM-DD")
		}
		// inclusive end date
		end := t.AddDate(0, 0, 1)
		filter.DateTo = &end
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("limit must be a positive integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
