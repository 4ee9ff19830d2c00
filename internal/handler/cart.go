package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marketbay/go-storefront-api/internal/dto"
	"github.com/marketbay/go-storefront-api/internal/middleware"
	"github.com/marketbay/go-storefront-api/internal/model"
	"github.com/marketbay/go-storefront-api/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.AddItem(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.Quantity, req.VariantKey)
	if err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "item added"})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req dto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.UpdateItemQuantity(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.Quantity, req.VariantKey)
	if err != nil {
		h.writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item updated"})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	var req dto.RemoveCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.svc.RemoveItem(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.VariantKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.svc.ClearCart(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	var req dto.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.ApplyCoupon(c.Request.Context(), middleware.GetUserID(c), req.Code)
	if err != nil {
		writeCouponError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	if err := h.svc.RemoveCoupon(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) SetShippingMethod(c *gin.Context) {
	var req dto.SetShippingMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.svc.SetShippingMethod(c.Request.Context(), middleware.GetUserID(c), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrShippingMethodNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "shipping method not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) ListShippingMethods(c *gin.Context) {
	methods := service.ShippingMethods()
	resp := make([]dto.ShippingMethodResponse, 0, len(methods))
	for _, m := range methods {
		resp = append(resp, dto.ShippingMethodResponse{
			Name: m.Name, Price: m.Price, EstimatedDays: m.EstimatedDays,
		})
	}
	c.JSON(http.StatusOK, gin.H{"methods": resp})
}

func (h *CartHandler) writeCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrCartItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func writeCouponError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
	case errors.Is(err, service.ErrCouponNotValid),
		errors.Is(err, service.ErrCouponMinAmount),
		errors.Is(err, service.ErrCouponAlreadyUsed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, dto.CartItemResponse{
			ProductID:  item.ProductID,
			Name:       item.ProductName,
			ImageURL:   item.ImageURL,
			VariantKey: item.VariantKey,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}
	resp := dto.CartResponse{
		ID:             cart.ID,
		Items:          items,
		CouponCode:     cart.CouponCode,
		CouponDiscount: cart.CouponDiscount,
		Subtotal:       cart.Subtotal(),
		TotalItems:     cart.TotalItems(),
		Total:          cart.Total(),
	}
	if cart.Shipping.Name != "" {
		resp.Shipping = &dto.ShippingMethodResponse{
			Name:          cart.Shipping.Name,
			Price:         cart.Shipping.Price,
			EstimatedDays: cart.Shipping.EstimatedDays,
		}
	}
	return resp
}
