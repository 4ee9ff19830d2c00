package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marketbay/go-storefront-api/internal/dto"
	"github.com/marketbay/go-storefront-api/internal/middleware"
	"github.com/marketbay/go-storefront-api/internal/model"
	"github.com/marketbay/go-storefront-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var items []dto.OrderResponse
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}

	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: len(items)})
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offset := (req.Page - 1) * req.Limit
	orders, total, err := h.orderService.List(c.Request.Context(), model.OrderStatus(req.Status), req.Limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var items []dto.OrderResponse
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}

	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: total})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(),
		orderID, middleware.GetUserID(c), middleware.GetUserRole(c) == "admin")
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(),
		orderID, middleware.GetUserID(c), middleware.GetUserRole(c) == "admin")
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(),
		orderID, model.OrderStatus(req.Status), req.TrackingNumber, req.Carrier, req.Message)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, service.ErrOrderAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCouponNotFound),
		errors.Is(err, service.ErrCouponNotValid),
		errors.Is(err, service.ErrCouponMinAmount),
		errors.Is(err, service.ErrCouponAlreadyUsed):
		writeCouponError(c, err)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	var items []dto.OrderItemResponse
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID:  item.ProductID,
			Name:       item.ProductName,
			ImageURL:   item.ImageURL,
			VariantKey: item.VariantKey,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}

	var timeline []dto.TimelineEntryResponse
	for _, e := range order.Timeline {
		timeline = append(timeline, dto.TimelineEntryResponse{
			Status:    string(e.Status),
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		})
	}

	resp := dto.OrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Items:       items,
		Totals: dto.OrderTotalsResponse{
			Subtotal:   order.Totals.Subtotal,
			Shipping:   order.Totals.Shipping,
			Discount:   order.Totals.Discount,
			GrandTotal: order.Totals.GrandTotal,
		},
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		CouponCode:     order.CouponCode,
		Notes:          order.Notes,
		Timeline:       timeline,
		CreatedAt:      order.CreatedAt,
	}
	if order.ShippingAddress.Line1 != "" {
		addr := order.ShippingAddress
		resp.ShippingAddress = &addr
	}
	if order.Payment.Provider != "" {
		resp.Payment = &dto.PaymentResponse{
			Provider:      order.Payment.Provider,
			Status:        order.Payment.Status,
			Amount:        order.Payment.Amount,
			Currency:      order.Payment.Currency,
			TransactionID: order.Payment.TransactionID,
		}
	}
	if order.Shipping.Name != "" {
		resp.Shipping = &dto.ShippingMethodResponse{
			Name:          order.Shipping.Name,
			Price:         order.Shipping.Price,
			EstimatedDays: order.Shipping.EstimatedDays,
		}
	}
	return resp
}
