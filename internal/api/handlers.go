package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/b2b-ordering/internal/models"
	"github.com/safar/b2b-ordering/internal/orders"
	"github.com/safar/b2b-ordering/internal/store"
)

// OrderService is the slice of *orders.Service the HTTP layer calls.
type OrderService interface {
	CreateOrder(ctx context.Context, user models.CurrentUser, req orders.CreateOrderRequest) (int64, error)
	ModifyOrder(ctx context.Context, user models.CurrentUser, orderID int64, req orders.ModifyOrderRequest) error
	DeleteOrder(ctx context.Context, user models.CurrentUser, orderID int64) error
	ValidateOrder(ctx context.Context, user models.CurrentUser, orderID int64) error
	SendOrder(ctx context.Context, user models.CurrentUser, orderID int64) error
	ListOrders(ctx context.Context, user models.CurrentUser) ([]models.Order, error)
	GetOrder(ctx context.Context, user models.CurrentUser, orderID int64) (*models.Order, error)
	ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	Ping(ctx context.Context) error
}

type ErrorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message"`
	Shortfalls []string `json:"shortfalls,omitempty"`
}

type orderRequest struct {
	OwnerID      int64                    `json:"owner_id"`
	DeliveryDate string                   `json:"delivery_date"`
	Address      *store.AddressInput      `json:"address"`
	Items        []store.OrderItemRequest `json:"items"`
}

type orderResponse struct {
	models.Order
	Totals models.Totals `json:"totals"`
}

func newOrderResponse(order models.Order) orderResponse {
	return orderResponse{Order: order, Totals: order.Totals()}
}

type Handler struct {
	orders OrderService
}

func NewHandler(svc OrderService) *Handler {
	return &Handler{orders: svc}
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.orders.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Database connection failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) CreateOrder(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		abort(c, http.StatusUnauthorized, "Invalid user", "No authenticated user")
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	id, err := h.orders.CreateOrder(c.Request.Context(), user, orders.CreateOrderRequest{
		OwnerID:      req.OwnerID,
		DeliveryDate: req.DeliveryDate,
		Address:      req.Address,
		Items:        req.Items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) ListOrders(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		abort(c, http.StatusUnauthorized, "Invalid user", "No authenticated user")
		return
	}

	list, err := h.orders.ListOrders(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]orderResponse, 0, len(list))
	for _, order := range list {
		resp = append(resp, newOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

func (h *Handler) GetOrder(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(*order))
}

func (h *Handler) ModifyOrder(c *gin.Context) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	err := h.orders.ModifyOrder(c.Request.Context(), user, id, orders.ModifyOrderRequest{
		DeliveryDate: req.DeliveryDate,
		Address:      req.Address,
		Items:        req.Items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	h.transition(c, h.orders.DeleteOrder)
}

func (h *Handler) ValidateOrder(c *gin.Context) {
	h.transition(c, h.orders.ValidateOrder)
}

func (h *Handler) SendOrder(c *gin.Context) {
	h.transition(c, h.orders.SendOrder)
}

func (h *Handler) transition(c *gin.Context, fn func(context.Context, models.CurrentUser, int64) error) {
	user, id, ok := userAndID(c)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), user, id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	result, err := h.orders.ListProducts(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid product ID", Message: err.Error()})
		return
	}

	product, err := h.orders.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func userAndID(c *gin.Context) (models.CurrentUser, int64, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		abort(c, http.StatusUnauthorized, "Invalid user", "No authenticated user")
		return models.CurrentUser{}, 0, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid order ID", Message: err.Error()})
		return models.CurrentUser{}, 0, false
	}

	return user, id, true
}

var kindStatus = map[orders.Kind]int{
	orders.KindNotFound:            http.StatusNotFound,
	orders.KindPermissionDenied:    http.StatusForbidden,
	orders.KindValidationFailed:    http.StatusBadRequest,
	orders.KindInsufficientStock:   http.StatusConflict,
	orders.KindConcurrencyConflict: http.StatusConflict,
	orders.KindStoreUnavailable:    http.StatusServiceUnavailable,
	orders.KindInternal:            http.StatusInternalServerError,
}

func respondError(c *gin.Context, err error) {
	var oe *orders.Error
	if !errors.As(err, &oe) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Internal server error"})
		return
	}

	status, ok := kindStatus[oe.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}

	c.JSON(status, ErrorResponse{
		Error:      oe.Kind.String(),
		Message:    oe.Message,
		Shortfalls: oe.Shortfalls,
	})
}
