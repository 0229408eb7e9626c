// Package analytics derives the dashboard figures from paid orders and the
// current catalog.
package analytics

import (
	"sort"
	"time"

	"github.com/ariefcatur/icebay-pos/internal/catalog"
	"github.com/ariefcatur/icebay-pos/internal/orders"
	"github.com/shopspring/decimal"
)

const (
	topSellerLimit = 5
	lowStockLimit  = 5
	dateLayout     = "2006-01-02"
)

type CategoryShare struct {
	Category     catalog.Category `json:"category"`
	Units        int              `json:"units"`
	RevenueCents int64            `json:"revenue_cents"`
	SharePct     decimal.Decimal  `json:"share_pct"`
}

type Seller struct {
	VarietyID    string           `json:"variety_id"`
	Name         string           `json:"name"`
	Category     catalog.Category `json:"category"`
	Units        int              `json:"units"`
	RevenueCents int64            `json:"revenue_cents"`
}

type LowStock struct {
	VarietyID string           `json:"variety_id"`
	Name      string           `json:"name"`
	Category  catalog.Category `json:"category"`
	Stock     int              `json:"stock"`
}

type DailySummary struct {
	Date         string          `json:"date"`
	Orders       int             `json:"orders"`
	UnitsSold    int             `json:"units_sold"`
	RevenueCents int64           `json:"revenue_cents"`
	ProfitCents  int64           `json:"profit_cents"`
	StockOnHand  int             `json:"stock_on_hand"`
	Categories   []CategoryShare `json:"categories"`
	TopSellers   []Seller        `json:"top_sellers"`
	LowStock     []LowStock      `json:"low_stock"`
}

type DayPoint struct {
	Date         string `json:"date"`
	UnitsSold    int    `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
	ProfitCents  int64  `json:"profit_cents"`
}

// dayBounds returns [start, end) of the calendar day containing t in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func paidWithin(o orders.Order, from, to time.Time) bool {
	return o.Status == orders.StatusPaid && o.PaidAt != nil && !o.PaidAt.Before(from) && o.PaidAt.Before(to)
}

func costIndex(vs []catalog.Variety) map[string]int64 {
	out := make(map[string]int64, len(vs))
	for _, v := range vs {
		out[v.ID] = v.CostCents
	}
	return out
}

// Daily summarises the paid orders of the day containing day. Profit uses
// each variety's current cost against the price frozen on the order.
func Daily(day time.Time, paid []orders.Order, vs []catalog.Variety, lowStockThreshold int) DailySummary {
	from, to := dayBounds(day)
	cost := costIndex(vs)

	s := DailySummary{Date: from.Format(dateLayout)}
	byCategory := map[catalog.Category]*CategoryShare{}
	bySeller := map[string]*Seller{}

	for _, o := range paid {
		if !paidWithin(o, from, to) {
			continue
		}
		s.Orders++
		for _, it := range o.Items {
			s.UnitsSold += it.Quantity
			s.RevenueCents += it.LineTotalCents
			s.ProfitCents += (it.UnitPriceCents - cost[it.VarietyID]) * int64(it.Quantity)

			cs := byCategory[it.Category]
			if cs == nil {
				cs = &CategoryShare{Category: it.Category}
				byCategory[it.Category] = cs
			}
			cs.Units += it.Quantity
			cs.RevenueCents += it.LineTotalCents

			sl := bySeller[it.VarietyID]
			if sl == nil {
				sl = &Seller{VarietyID: it.VarietyID, Name: it.Name, Category: it.Category}
				bySeller[it.VarietyID] = sl
			}
			sl.Units += it.Quantity
			sl.RevenueCents += it.LineTotalCents
		}
	}

	s.Categories = make([]CategoryShare, 0, len(byCategory))
	for _, c := range catalog.Categories {
		cs := byCategory[c]
		if cs == nil || cs.Units == 0 {
			continue
		}
		cs.SharePct = decimal.NewFromInt(int64(cs.Units)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.UnitsSold))).
			Round(1)
		s.Categories = append(s.Categories, *cs)
	}

	s.TopSellers = make([]Seller, 0, len(bySeller))
	for _, sl := range bySeller {
		s.TopSellers = append(s.TopSellers, *sl)
	}
	sort.Slice(s.TopSellers, func(i, j int) bool {
		a, b := s.TopSellers[i], s.TopSellers[j]
		if a.Units != b.Units {
			return a.Units > b.Units
		}
		return a.Name < b.Name
	})
	if len(s.TopSellers) > topSellerLimit {
		s.TopSellers = s.TopSellers[:topSellerLimit]
	}

	s.LowStock = []LowStock{}
	for _, v := range vs {
		s.StockOnHand += v.Stock
		if v.Stock > 0 && v.Stock < lowStockThreshold {
			s.LowStock = append(s.LowStock, LowStock{VarietyID: v.ID, Name: v.Name, Category: v.Category, Stock: v.Stock})
		}
	}
	sort.SliceStable(s.LowStock, func(i, j int) bool {
		if s.LowStock[i].Stock != s.LowStock[j].Stock {
			return s.LowStock[i].Stock < s.LowStock[j].Stock
		}
		return s.LowStock[i].Name < s.LowStock[j].Name
	})
	if len(s.LowStock) > lowStockLimit {
		s.LowStock = s.LowStock[:lowStockLimit]
	}
	return s
}

// Series returns one point per day for the days ending on end, oldest first.
func Series(end time.Time, days int, paid []orders.Order, vs []catalog.Variety) []DayPoint {
	if days <= 0 {
		return []DayPoint{}
	}
	cost := costIndex(vs)
	_, stop := dayBounds(end)
	first := stop.AddDate(0, 0, -days)

	out := make([]DayPoint, days)
	for i := range out {
		out[i].Date = first.AddDate(0, 0, i).Format(dateLayout)
	}
	for _, o := range paid {
		if !paidWithin(o, first, stop) {
			continue
		}
		paidAt := o.PaidAt.In(end.Location())
		start, _ := dayBounds(paidAt)
		i := int(start.Sub(first).Hours()+12) / 24
		if i < 0 || i >= days {
			continue
		}
		for _, it := range o.Items {
			out[i].UnitsSold += it.Quantity
			out[i].RevenueCents += it.LineTotalCents
			out[i].ProfitCents += (it.UnitPriceCents - cost[it.VarietyID]) * int64(it.Quantity)
		}
	}
	return out
}
