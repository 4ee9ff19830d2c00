package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbay/go-storefront-api/internal/model"
)

func TestCalculateDiscount(t *testing.T) {
	maxTen := decimal.NewFromInt(10)

	tests := []struct {
		name   string
		coupon model.Coupon
		amount float64
		want   float64
	}{
		{
			name:   "percentage",
			coupon: model.Coupon{Type: model.CouponTypePercentage, Value: decimal.NewFromInt(10)},
			amount: 50,
			want:   5,
		},
		{
			name:   "percentage rounds half up",
			coupon: model.Coupon{Type: model.CouponTypePercentage, Value: decimal.NewFromInt(15)},
			amount: 10.05,
			want:   1.51,
		},
		{
			name:   "fixed",
			coupon: model.Coupon{Type: model.CouponTypeFixed, Value: decimal.NewFromInt(5)},
			amount: 50,
			want:   5,
		},
		{
			name:   "fixed clamped to order amount",
			coupon: model.Coupon{Type: model.CouponTypeFixed, Value: decimal.NewFromInt(20)},
			amount: 12.50,
			want:   12.50,
		},
		{
			name:   "percentage clamped to max discount",
			coupon: model.Coupon{Type: model.CouponTypePercentage, Value: decimal.NewFromInt(50), MaxDiscount: &maxTen},
			amount: 100,
			want:   10,
		},
		{
			name:   "zero order amount",
			coupon: model.Coupon{Type: model.CouponTypeFixed, Value: decimal.NewFromInt(5)},
			amount: 0,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(&tt.coupon, decimal.NewFromFloat(tt.amount))
			assert.True(t, got.Equal(decimal.NewFromFloat(tt.want)), "got %s, want %v", got, tt.want)
		})
	}
}

func TestCalculateDiscount_NeverExceedsAmount(t *testing.T) {
	maxDiscount := decimal.NewFromInt(30)
	coupons := []model.Coupon{
		{Type: model.CouponTypePercentage, Value: decimal.NewFromInt(100)},
		{Type: model.CouponTypeFixed, Value: decimal.NewFromInt(500)},
		{Type: model.CouponTypePercentage, Value: decimal.NewFromInt(80), MaxDiscount: &maxDiscount},
	}
	for _, amount := range []float64{0, 0.01, 9.99, 25, 100, 1234.56} {
		orderAmount := decimal.NewFromFloat(amount)
		for _, coupon := range coupons {
			got := CalculateDiscount(&coupon, orderAmount)
			assert.False(t, got.GreaterThan(orderAmount), "discount %s exceeds amount %s", got, orderAmount)
			assert.False(t, got.IsNegative())
			if coupon.MaxDiscount != nil {
				assert.False(t, got.GreaterThan(*coupon.MaxDiscount))
			}
		}
	}
}

func TestCouponService_ValidateForOrder(t *testing.T) {
	repo := newMockCouponRepo()
	svc := NewCouponService(repo)
	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		coupon := activeCoupon(repo, "OK10", model.CouponTypePercentage, 10, 0)
		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(50))
		assert.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		coupon := activeCoupon(repo, "OLD10", model.CouponTypePercentage, 10, 0)
		coupon.EndDate = time.Now().Add(-time.Minute)
		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(50))
		assert.ErrorIs(t, err, ErrCouponNotValid)
	})

	t.Run("inactive", func(t *testing.T) {
		coupon := activeCoupon(repo, "OFF10", model.CouponTypePercentage, 10, 0)
		coupon.IsActive = false
		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(50))
		assert.ErrorIs(t, err, ErrCouponNotValid)
	})

	t.Run("below minimum", func(t *testing.T) {
		coupon := activeCoupon(repo, "MIN100", model.CouponTypeFixed, 20, 100)
		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(99))
		assert.ErrorIs(t, err, ErrCouponMinAmount)
	})

	t.Run("invalid wins over below minimum", func(t *testing.T) {
		coupon := activeCoupon(repo, "BOTH", model.CouponTypeFixed, 20, 100)
		coupon.IsActive = false
		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(99))
		assert.ErrorIs(t, err, ErrCouponNotValid)
	})

	t.Run("globally exhausted", func(t *testing.T) {
		coupon := activeCoupon(repo, "GONE", model.CouponTypeFixed, 5, 0)
		maxUses := 10
		coupon.MaxUses = &maxUses
		coupon.CurrentUses = 10
		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(50))
		assert.ErrorIs(t, err, ErrCouponNotValid)
	})

	t.Run("user limit reached", func(t *testing.T) {
		coupon := activeCoupon(repo, "ONCE", model.CouponTypeFixed, 5, 0)
		require.NoError(t, repo.RecordUse(context.Background(), nil, coupon.ID, userID))

		err := svc.ValidateForOrder(context.Background(), coupon, userID, decimal.NewFromInt(50))
		assert.ErrorIs(t, err, ErrCouponAlreadyUsed)

		// Still usable by someone else even though this user is capped.
		err = svc.ValidateForOrder(context.Background(), coupon, uuid.New(), decimal.NewFromInt(50))
		assert.NoError(t, err)
	})
}

func TestCouponService_FindValidCoupon(t *testing.T) {
	repo := newMockCouponRepo()
	svc := NewCouponService(repo)
	activeCoupon(repo, "SAVE10", model.CouponTypePercentage, 10, 0)

	coupon, err := svc.FindValidCoupon(context.Background(), "save10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", coupon.Code)

	_, err = svc.FindValidCoupon(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrCouponNotFound)
}

func TestCouponService_FindValidCoupon_ExpiredReadsAsNotFound(t *testing.T) {
	repo := newMockCouponRepo()
	svc := NewCouponService(repo)
	coupon := activeCoupon(repo, "OLD", model.CouponTypeFixed, 5, 0)
	repo.coupons[coupon.Code].EndDate = time.Now().Add(-time.Minute)

	_, err := svc.FindValidCoupon(context.Background(), "OLD")
	assert.ErrorIs(t, err, ErrCouponNotFound)
}
