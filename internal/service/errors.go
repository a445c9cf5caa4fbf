package service

import (
	"github.com/dukerupert/khetikara/internal/domain"
)

// Storefront errors
var (
	ErrLanguageRequired    = domain.Errorf(domain.EINVALID, "", "Language is required")
	ErrBasketNotConfigured = domain.Errorf(domain.EUNAVAILABLE, "", "Basket is not configured")
)
