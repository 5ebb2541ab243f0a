package analytics

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/wolfman30/clinic-bi/internal/dataset"
)

// ErrUnknownView is returned for view names the engine does not serve.
var ErrUnknownView = errors.New("analytics: unknown view")

// View names a dashboard page.
type View string

const (
	ViewOverview     View = "overview"
	ViewPatients     View = "patients"
	ViewAppointments View = "appointments"
	ViewBilling      View = "billing"
	ViewCarePlans    View = "care-plans"
	ViewLocations    View = "locations"
	ViewOperators    View = "operators"
)

// Views lists every view in dashboard navigation order.
var Views = []View{ViewOverview, ViewPatients, ViewAppointments, ViewBilling, ViewCarePlans, ViewLocations, ViewOperators}

func ParseView(name string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Views {
		if v == known {
			return v, nil
		}
	}
	return "", ErrUnknownView
}

// Attribution selects how operator revenue is credited.
type Attribution string

const (
	// AttributionFull credits every operator who saw a patient with that
	// patient's whole bill total, so operator revenues can add up to more
	// than the clinic revenue.
	AttributionFull Attribution = "full"
	// AttributionSplit divides each patient's bill total across operators in
	// proportion to their appointments with the patient.
	AttributionSplit Attribution = "split"
)

func ParseAttribution(v string) Attribution {
	if Attribution(strings.ToLower(strings.TrimSpace(v))) == AttributionSplit {
		return AttributionSplit
	}
	return AttributionFull
}

type Options struct {
	TrendMode   TrendMode
	TrendSeed   int64
	Attribution Attribution
}

// Engine computes views over one immutable dataset and its index. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	data  *dataset.Dataset
	index *dataset.Index
	opts  Options
}

func NewEngine(d *dataset.Dataset, ix *dataset.Index, opts Options) *Engine {
	d = dataset.Normalize(d)
	if ix == nil {
		ix = dataset.NewIndex(d)
	}
	if opts.TrendMode == "" {
		opts.TrendMode = TrendMonthly
	}
	if opts.Attribution == "" {
		opts.Attribution = AttributionFull
	}
	return &Engine{data: d, index: ix, opts: opts}
}

func (e *Engine) Dataset() *dataset.Dataset { return e.data }

func (e *Engine) Options() Options { return e.opts }

// Compute dispatches to the named view.
func (e *Engine) Compute(view View, f Filter) (any, error) {
	f = f.Normalize()
	switch view {
	case ViewOverview:
		return e.Overview(f), nil
	case ViewPatients:
		return e.Patients(f), nil
	case ViewAppointments:
		return e.Appointments(f), nil
	case ViewBilling:
		return e.Billing(f), nil
	case ViewCarePlans:
		return e.CarePlans(f), nil
	case ViewLocations:
		return e.Locations(), nil
	case ViewOperators:
		return e.Operators(f), nil
	default:
		return nil, ErrUnknownView
	}
}

func (e *Engine) trend(bills []dataset.Bill, transactions []dataset.Transaction) Trend {
	if e.opts.TrendMode == TrendSynthetic {
		billed := Sum(bills, func(b *dataset.Bill) float64 { return b.Gross.Float() })
		collected := Sum(transactions, func(t *dataset.Transaction) float64 { return t.Amount.Float() })
		return SyntheticTrend(billed, collected, rand.New(rand.NewSource(e.opts.TrendSeed)))
	}
	return MonthlyTrend(bills, transactions)
}

// billTotals sums gross bill amounts per patient.
func billTotals(bills []dataset.Bill) map[dataset.ID]float64 {
	out := make(map[dataset.ID]float64, len(bills))
	for _, b := range bills {
		out[b.PatientID] += b.Gross.Float()
	}
	return out
}

func totalGross(bills []dataset.Bill) float64 {
	return Sum(bills, func(b *dataset.Bill) float64 { return b.Gross.Float() })
}

func totalCollected(transactions []dataset.Transaction) float64 {
	return Sum(transactions, func(t *dataset.Transaction) float64 { return t.Amount.Float() })
}

func totalMinutes(appointments []dataset.Appointment) float64 {
	return Sum(appointments, func(a *dataset.Appointment) float64 { return a.Duration.Float() })
}

func hasState(state string) func(*dataset.Appointment) bool {
	return func(a *dataset.Appointment) bool { return string(a.State) == state }
}
