package domain

import (
	"context"
	"time"
)

// Order-related domain errors.
var (
	ErrEmptyCart          = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrInvalidRecipients  = &Error{Code: EINVALID, Message: "Please correct the recipient details"}
	ErrSubmissionInFlight = Conflict("", "An order is already being placed")
	ErrNoConfirmation     = &Error{Code: ENOTFOUND, Message: "No order has been placed"}
)

//go:generate mockgen -source=order.go -destination=mock_order.go -package=domain

// OrderService accepts normalized order payloads and returns the
// human-readable order number assigned by the backend.
type OrderService interface {
	CreateOrder(ctx context.Context, payload OrderPayload) (string, error)
}

// OrderCustomer is the primary contact for an order.
type OrderCustomer struct {
	Phone              string `json:"phone"`
	Name               string `json:"name"`
	LanguagePreference string `json:"language_preference"`
}

// OrderAddress is one delivery recipient.
type OrderAddress struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	FlatAddress string `json:"flat_address"`
	PinCode     string `json:"pin_code"`
}

// OrderItem is one priced line of an order.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	ProductVariety string `json:"product_variety"`
	GradeKey       string `json:"grade_key"`
	GradeLabel     string `json:"grade_label"`
	UnitPrice      int64  `json:"unit_price"`
	Quantity       int    `json:"quantity"`
	TotalPrice     int64  `json:"total_price"`
}

// OrderPayload is the body submitted to the order service.
type OrderPayload struct {
	Customer       OrderCustomer  `json:"customer"`
	Addresses      []OrderAddress `json:"addresses"`
	Items          []OrderItem    `json:"items"`
	ItemsTotal     int64          `json:"items_total"`
	HandlingFee    int64          `json:"handling_fee"`
	DeliveryFee    int64          `json:"delivery_fee"`
	DiscountAmount int64          `json:"discount_amount"`
	TotalAmount    int64          `json:"total_amount"`
	Notes          string         `json:"notes"`
}

// OrderConfirmation is what the customer sees after placing an order.
// Fallback is set when the order number was synthesized locally because the
// order service could not be reached; such orders need reconciliation.
type OrderConfirmation struct {
	OrderNumber string    `json:"order_number"`
	Fallback    bool      `json:"fallback"`
	TotalAmount int64     `json:"total_amount"`
	PlacedAt    time.Time `json:"placed_at"`
}
