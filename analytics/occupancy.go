package analytics

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CTO - Total occupancy cost
// =============================================================================

// OccupancyCosts are the monthly costs of keeping a store's point of sale.
type OccupancyCosts struct {
	Rent          decimal.Decimal // aluguel
	CondoFees     decimal.Decimal // condomínio
	PropertyTax   decimal.Decimal // IPTU, monthly share
	MarketingFund decimal.Decimal // fundo de promoção
	Other         decimal.Decimal
}

// Total is the CTO: the sum of every occupancy cost.
func (c OccupancyCosts) Total() decimal.Decimal {
	return decimal.Sum(c.Rent, c.CondoFees, c.PropertyTax, c.MarketingFund, c.Other)
}

type CTOStatus string

const (
	CTOHealthy   CTOStatus = "healthy"
	CTOAttention CTOStatus = "attention"
	CTOCritical  CTOStatus = "critical"
	CTONoRevenue CTOStatus = "no_revenue"
)

var (
	ctoHealthyLimit   = decimal.NewFromInt(12)
	ctoAttentionLimit = decimal.NewFromInt(15)
	hundred           = decimal.NewFromInt(100)
)

// CTOReport is the occupancy cost of one store in one period.
type CTOReport struct {
	Total   decimal.Decimal
	Revenue decimal.Decimal
	// Percent is Total / Revenue * 100, two decimals. Zero without revenue.
	Percent decimal.Decimal
	Status  CTOStatus
	// HealthyRevenue is the revenue at which CTO would sit at the healthy
	// limit.
	HealthyRevenue decimal.Decimal
}

// OccupancyCost computes the CTO model for a month's revenue.
func OccupancyCost(costs OccupancyCosts, revenue decimal.Decimal) CTOReport {
	total := costs.Total()
	report := CTOReport{
		Total:          total,
		Revenue:        revenue,
		Percent:        decimal.Zero,
		HealthyRevenue: total.Mul(hundred).Div(ctoHealthyLimit).Round(2),
	}

	if !revenue.IsPositive() {
		report.Status = CTONoRevenue
		return report
	}

	report.Percent = total.Div(revenue).Mul(hundred).Round(2)
	switch {
	case report.Percent.LessThanOrEqual(ctoHealthyLimit):
		report.Status = CTOHealthy
	case report.Percent.LessThanOrEqual(ctoAttentionLimit):
		report.Status = CTOAttention
	default:
		report.Status = CTOCritical
	}
	return report
}
