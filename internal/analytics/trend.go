package analytics

import (
	"math"
	"math/rand"
	"strings"

	"github.com/wolfman30/clinic-bi/internal/dataset"
)

// TrendMode selects how the overview revenue trend is built.
type TrendMode string

const (
	// TrendMonthly buckets bills and transactions by the month of their date.
	TrendMonthly TrendMode = "monthly"
	// TrendSynthetic spreads the totals over 12 months with a random
	// multiplier in [0.7, 1.3), matching the legacy dashboard chart.
	TrendSynthetic TrendMode = "synthetic"
)

// ParseTrendMode maps a configuration value to a mode, defaulting to monthly.
func ParseTrendMode(v string) TrendMode {
	if TrendMode(strings.ToLower(strings.TrimSpace(v))) == TrendSynthetic {
		return TrendSynthetic
	}
	return TrendMonthly
}

// MonthLabels are the Italian short month names used on the trend axis.
var MonthLabels = [12]string{"Gen", "Feb", "Mar", "Apr", "Mag", "Giu", "Lug", "Ago", "Set", "Ott", "Nov", "Dic"}

type TrendPoint struct {
	Name      string  `json:"name"`
	Billed    float64 `json:"billed"`
	Collected float64 `json:"collected"`
}

type Trend struct {
	Mode             TrendMode    `json:"trend_mode"`
	Points           []TrendPoint `json:"points"`
	UndatedBilled    float64      `json:"undated_billed"`
	UndatedCollected float64      `json:"undated_collected"`
}

func emptyTrend(mode TrendMode) Trend {
	points := make([]TrendPoint, len(MonthLabels))
	for i, label := range MonthLabels {
		points[i].Name = label
	}
	return Trend{Mode: mode, Points: points}
}

// MonthlyTrend folds every year into Gen..Dic by record date. Records without
// a parseable date are reported separately so that the months plus the
// undated amounts always add up to the totals.
func MonthlyTrend(bills []dataset.Bill, transactions []dataset.Transaction) Trend {
	trend := emptyTrend(TrendMonthly)
	for _, b := range bills {
		if t, ok := dataset.ParseDate(b.Date); ok {
			trend.Points[t.Month()-1].Billed += b.Gross.Float()
		} else {
			trend.UndatedBilled += b.Gross.Float()
		}
	}
	for _, tx := range transactions {
		if t, ok := dataset.ParseDate(tx.Date); ok {
			trend.Points[t.Month()-1].Collected += tx.Amount.Float()
		} else {
			trend.UndatedCollected += tx.Amount.Float()
		}
	}
	return trend
}

// SyntheticTrend reproduces the legacy chart: each month is
// floor(total/12 * (0.7 + r*0.6)) with r drawn from rng, billed before
// collected.
func SyntheticTrend(totalBilled, totalCollected float64, rng *rand.Rand) Trend {
	trend := emptyTrend(TrendSynthetic)
	for i := range trend.Points {
		trend.Points[i].Billed = math.Floor(totalBilled / 12 * (0.7 + rng.Float64()*0.6))
		trend.Points[i].Collected = math.Floor(totalCollected / 12 * (0.7 + rng.Float64()*0.6))
	}
	return trend
}
