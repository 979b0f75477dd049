package service

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrSessionNotFound     = errors.New("checkout session not found")
	IllegalTransitionError = errors.New("illegal transition of checkout status")
)
