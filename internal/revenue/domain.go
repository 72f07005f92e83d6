package revenue

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stockpit-erp/stockpit-erp/internal/platform/httpx"
)

// Channel identifies where revenue came from.
const (
	ChannelStand       = "STAND"
	ChannelConsignment = "CONSIGNMENT"
	ChannelWeb         = "WEB"
)

// Row is one revenue contribution loaded from storage, normalised across
// channels before aggregation.
type Row struct {
	Channel   string
	ProductID int64
	Day       time.Time
	Quantity  int64
	Amount    float64
}

// ChannelSummary is revenue and share for one channel.
type ChannelSummary struct {
	Channel string  `json:"channel"`
	Revenue float64 `json:"revenue"`
	Share   float64 `json:"share_pct"`
}

// ProductSummary is quantity and revenue for one product across channels.
type ProductSummary struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// DaySummary is total revenue for one calendar day.
type DaySummary struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// Summary is the consolidated revenue view for a date range.
type Summary struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	TotalRevenue float64          `json:"total_revenue"`
	DisplayTotal string           `json:"display_total"`
	Channels     []ChannelSummary `json:"channels"`
	Products     []ProductSummary `json:"products"`
	Days         []DaySummary     `json:"days"`
}

// ErrInvalidRange rejects malformed or inverted date ranges.
var ErrInvalidRange = fmt.Errorf("revenue: %w: invalid date range", httpx.ErrValidation)

// Round2 rounds currency to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds percentages to one decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders a grouped two-decimal money string for reporting.
func FormatMoney(v float64) string {
	return moneyPrinter.Sprintf("%.2f", v)
}
