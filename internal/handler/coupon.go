package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marketbay/go-storefront-api/internal/dto"
	"github.com/marketbay/go-storefront-api/internal/model"
	"github.com/marketbay/go-storefront-api/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

func (h *CouponHandler) Create(c *gin.Context) {
	var req dto.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon, err := h.couponService.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCouponNotValid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, toCouponResponse(coupon))
}

func (h *CouponHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	coupons, total, err := h.couponService.List(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var items []dto.CouponResponse
	for i := range coupons {
		items = append(items, toCouponResponse(&coupons[i]))
	}

	c.JSON(http.StatusOK, dto.CouponListResponse{Coupons: items, Total: total})
}

func (h *CouponHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon ID"})
		return
	}

	if err := h.couponService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func toCouponResponse(coupon *model.Coupon) dto.CouponResponse {
	return dto.CouponResponse{
		ID:          coupon.ID,
		Code:        coupon.Code,
		Type:        coupon.Type,
		Value:       coupon.Value,
		MinAmount:   coupon.MinAmount,
		MaxDiscount: coupon.MaxDiscount,
		StartDate:   coupon.StartDate,
		EndDate:     coupon.EndDate,
		IsActive:    coupon.IsActive,
		MaxUses:     coupon.MaxUses,
		CurrentUses: coupon.CurrentUses,
		UserLimit:   coupon.UserLimit,
	}
}
