package recommend

import (
	"context"
	"errors"
	"net/http"

	"github.com/agrifair/agriwizard/internal/logger"
)

// MarketPrice is one row of the market price board. Prices are rupees per quintal.
type MarketPrice struct {
	Crop       string  `json:"crop"`
	MandiPrice float64 `json:"mandi_price"`
	MSPPrice   float64 `json:"msp_price"`
	Status     string  `json:"status"`
}

// BelowMSP reports whether the mandi price is under the minimum support price.
func (m MarketPrice) BelowMSP() bool {
	return m.MandiPrice < m.MSPPrice
}

// FallbackPrices is shown when the backend cannot be reached.
func FallbackPrices() []MarketPrice {
	return []MarketPrice{
		{Crop: "Wheat", MandiPrice: 2100, MSPPrice: 2275, Status: "Below MSP"},
		{Crop: "Rice", MandiPrice: 3200, MSPPrice: 2183, Status: "Above MSP"},
	}
}

// MarketPrices fetches GET /market-prices.
func (c *Client) MarketPrices(ctx context.Context) ([]MarketPrice, error) {
	var prices []MarketPrice
	if err := c.do(ctx, http.MethodGet, "/market-prices", nil, &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

// MarketPricesOrFallback fetches the board and substitutes FallbackPrices on
// any error. fromBackend is false when the fallback was used.
func (c *Client) MarketPricesOrFallback(ctx context.Context) (prices []MarketPrice, fromBackend bool) {
	prices, err := c.MarketPrices(ctx)
	if err != nil {
		logger.Warn("recommend: market prices unavailable, using fallback: %v", err)
		return FallbackPrices(), false
	}
	return prices, true
}

// PriceCheckRequest is the body of POST /check-price.
type PriceCheckRequest struct {
	Crop       string  `json:"crop"`
	MandiPrice float64 `json:"mandi_price"`
	MSPPrice   float64 `json:"msp_price"`
}

// PriceCheck is the backend's verdict on a mandi price.
type PriceCheck struct {
	Crop       string  `json:"crop"`
	MandiPrice float64 `json:"mandi_price"`
	MSPPrice   float64 `json:"msp_price"`
	Status     string  `json:"status"`
	Suggestion string  `json:"suggestion"`
}

// ErrInvalidPrice is returned for empty crops or non-positive prices.
var ErrInvalidPrice = errors.New("crop and positive prices are required")

// CheckPrice asks the backend whether a mandi price is fair.
func (c *Client) CheckPrice(ctx context.Context, in PriceCheckRequest) (PriceCheck, error) {
	if in.Crop == "" || in.MandiPrice <= 0 || in.MSPPrice <= 0 {
		return PriceCheck{}, ErrInvalidPrice
	}
	var out PriceCheck
	if err := c.do(ctx, http.MethodPost, "/check-price", in, &out); err != nil {
		return PriceCheck{}, err
	}
	return out, nil
}
