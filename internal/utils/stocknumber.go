package utils

import (
	"fmt"
	"time"
)

// StockNumberHookFunc defines the signature for the NewStockNumber test hook.
// It returns a stock number and a boolean indicating whether to override the default generation.
type StockNumberHookFunc func() (stock string, override bool)

// NewStockNumberHook is a package-level variable that tests can set to override NewStockNumber behavior.
var NewStockNumberHook StockNumberHookFunc

// Now is the clock used for generated identifiers.
var Now = time.Now

// NewStockNumber synthesizes a stock number for a vehicle that has none:
// "AG" followed by the last six digits of the current epoch milliseconds.
// Collisions are possible; callers insert under a unique index and retry.
func NewStockNumber() string {
	if NewStockNumberHook != nil {
		if stock, override := NewStockNumberHook(); override {
			return stock
		}
	}
	return fmt.Sprintf("AG%06d", Now().UnixMilli()%1000000)
}
