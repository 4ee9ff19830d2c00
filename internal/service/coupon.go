package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketbay/go-storefront-api/internal/dto"
	"github.com/marketbay/go-storefront-api/internal/model"
	"github.com/marketbay/go-storefront-api/internal/repository"
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponNotValid    = errors.New("coupon is not valid")
	ErrCouponMinAmount   = errors.New("minimum order amount not reached")
	ErrCouponAlreadyUsed = errors.New("coupon already used")
)

type CouponService struct {
	couponRepo repository.CouponRepository
}

func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo}
}

// FindValidCoupon resolves a code (case-insensitive) to a coupon that is
// currently applicable. Inactive, expired, and exhausted coupons are reported
// as not found, matching what a shopper should see.
func (s *CouponService) FindValidCoupon(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if !coupon.IsValidAt(time.Now()) {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// ValidateForOrder runs the ordered validation checks; the first failing
// check wins. General validity, then the amount threshold, then the per-user
// usage cap.
func (s *CouponService) ValidateForOrder(ctx context.Context, coupon *model.Coupon, userID uuid.UUID, orderAmount decimal.Decimal) error {
	if !coupon.IsValidAt(time.Now()) {
		return ErrCouponNotValid
	}
	if orderAmount.LessThan(coupon.MinAmount) {
		return fmt.Errorf("%w: minimum order amount of $%s required", ErrCouponMinAmount, coupon.MinAmount.StringFixed(2))
	}
	uses, err := s.couponRepo.CountUsesByUser(ctx, coupon.ID, userID)
	if err != nil {
		return fmt.Errorf("count coupon uses: %w", err)
	}
	if uses >= coupon.UserLimit {
		return ErrCouponAlreadyUsed
	}
	return nil
}

// CalculateDiscount computes the discount for an order amount. Pure: no
// lookups, no side effects. The result is clamped to MaxDiscount when set and
// never exceeds the order amount, then rounded half-up to cents.
func CalculateDiscount(coupon *model.Coupon, orderAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case model.CouponTypePercentage:
		discount = orderAmount.Mul(coupon.Value).Div(decimal.NewFromInt(100))
	default:
		discount = coupon.Value
	}
	if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
		discount = *coupon.MaxDiscount
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	return discount.Round(2)
}

func (s *CouponService) Create(ctx context.Context, req dto.CreateCouponRequest) (*model.Coupon, error) {
	if req.Type != model.CouponTypePercentage && req.Type != model.CouponTypeFixed {
		return nil, fmt.Errorf("%w: unknown type %q", ErrCouponNotValid, req.Type)
	}
	userLimit := 1
	if req.UserLimit != nil {
		userLimit = *req.UserLimit
	}
	coupon := &model.Coupon{
		Code:        req.Code,
		Type:        req.Type,
		Value:       req.Value,
		MinAmount:   req.MinAmount,
		MaxDiscount: req.MaxDiscount,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    true,
		MaxUses:     req.MaxUses,
		UserLimit:   userLimit,
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return coupon, nil
}

func (s *CouponService) List(ctx context.Context, limit, offset int) ([]model.Coupon, int, error) {
	return s.couponRepo.List(ctx, limit, offset)
}

func (s *CouponService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.couponRepo.Delete(ctx, id)
}
