package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/marketbay/go-storefront-api/internal/model"
)

var ErrShippingMethodNotFound = errors.New("shipping method not found")

// shippingMethods is the fixed carrier offering. Standard is the default for
// carts that never chose one.
var shippingMethods = []model.ShippingMethod{
	{Name: "standard", Price: decimal.NewFromFloat(4.99), EstimatedDays: 5},
	{Name: "express", Price: decimal.NewFromFloat(12.99), EstimatedDays: 2},
	{Name: "overnight", Price: decimal.NewFromFloat(24.99), EstimatedDays: 1},
}

func ShippingMethods() []model.ShippingMethod {
	out := make([]model.ShippingMethod, len(shippingMethods))
	copy(out, shippingMethods)
	return out
}

func FindShippingMethod(name string) (model.ShippingMethod, error) {
	for _, m := range shippingMethods {
		if m.Name == name {
			return m, nil
		}
	}
	return model.ShippingMethod{}, ErrShippingMethodNotFound
}
