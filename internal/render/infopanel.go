package render

import (
	"github.com/shopspring/decimal"

	"github.com/seenimoa/alphapredict/internal/marketdata"
	"github.com/seenimoa/alphapredict/pkg/models"
	"github.com/seenimoa/alphapredict/pkg/utils"
)

// NotAvailable is displayed for optional fields the provider did not return.
const NotAvailable = "Not Available"

// Footer is the disclaimer rendered at the bottom of every page.
const Footer = "AlphaPredict is powered by AI. Consider thinking before trading."

// Field is one labelled line of the info panel.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// InfoPanel returns the descriptive fields shown beside the chart, in
// display order. Missing values never fail the panel.
func InfoPanel(snap *models.StockSnapshot) []Field {
	if snap == nil {
		return nil
	}

	name := "N/A"
	if snap.CompanyName.Valid && snap.CompanyName.String != "" {
		name = snap.CompanyName.String
	}

	index := "N/A"
	if snap.ExchangeCode.Valid && snap.ExchangeCode.String != "" {
		index = marketdata.ExchangeName(snap.ExchangeCode.String)
	}

	return []Field{
		{Label: "Name", Value: name},
		{Label: "Index", Value: index},
		{Label: "Current Price", Value: FormatPrice(snap)},
		{Label: "Full-time employees", Value: formatEmployees(snap)},
	}
}

// FormatPrice renders the current price as "$123.46", or NotAvailable when
// the provider returned no positive price.
func FormatPrice(snap *models.StockSnapshot) string {
	if snap == nil || !snap.CurrentPrice.Valid || snap.CurrentPrice.Float64 <= 0 {
		return NotAvailable
	}
	return "$" + decimal.NewFromFloat(snap.CurrentPrice.Float64).StringFixed(2)
}

func formatEmployees(snap *models.StockSnapshot) string {
	if !snap.FullTimeEmployees.Valid {
		return NotAvailable
	}
	return utils.FormatCount(snap.FullTimeEmployees.Int64)
}
