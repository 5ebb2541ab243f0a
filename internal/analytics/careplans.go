package analytics

import (
	"github.com/wolfman30/clinic-bi/internal/dataset"
)

type CarePlanRow struct {
	ID              dataset.ID `json:"id"`
	PatientID       dataset.ID `json:"patient_id"`
	PatientName     string     `json:"patient_name"`
	Name            string     `json:"name"`
	Price           float64    `json:"price"`
	DiscountedPrice float64    `json:"discounted_price"`
	State           string     `json:"state"`
	StateLabel      string     `json:"state_label"`
}

type CarePlansView struct {
	Total         int           `json:"total"`
	Accepted      int           `json:"accepted"`
	Pending       int           `json:"pending"`
	Rejected      int           `json:"rejected"`
	AcceptedPct   float64       `json:"accepted_pct"`
	PendingPct    float64       `json:"pending_pct"`
	RejectedPct   float64       `json:"rejected_pct"`
	AcceptedValue float64       `json:"accepted_value"`
	TotalRows     int           `json:"total_rows"`
	Rows          []CarePlanRow `json:"rows"`
}

// CarePlanStateLabel returns the Italian label of a care plan state.
// Unrecognized states are shown as-is.
func CarePlanStateLabel(state dataset.Text) string {
	switch state {
	case dataset.PlanAccepted:
		return "Accettato"
	case dataset.PlanPending:
		return "In Attesa"
	case dataset.PlanRejected:
		return "Rifiutato"
	default:
		return state.Display()
	}
}

func (e *Engine) CarePlans(f Filter) CarePlansView {
	f = f.Normalize()
	plans := FilterByLocation(e.data, f.Location).CarePlans

	inState := func(state string) func(*dataset.CarePlan) bool {
		return func(cp *dataset.CarePlan) bool { return string(cp.State) == state }
	}
	total := len(plans)
	accepted := CountWhere(plans, inState(dataset.PlanAccepted))
	pending := CountWhere(plans, inState(dataset.PlanPending))
	rejected := CountWhere(plans, inState(dataset.PlanRejected))

	page := Paginate(plans, f.Limit, f.Offset)
	rows := make([]CarePlanRow, 0, len(page))
	for _, cp := range page {
		rows = append(rows, CarePlanRow{
			ID:              cp.ID,
			PatientID:       cp.PatientID,
			PatientName:     e.index.PatientName(cp.PatientID),
			Name:            cp.Name.Display(),
			Price:           cp.Price.Float(),
			DiscountedPrice: cp.DiscountedPrice.Float(),
			State:           cp.State.Display(),
			StateLabel:      CarePlanStateLabel(cp.State),
		})
	}

	return CarePlansView{
		Total:       total,
		Accepted:    accepted,
		Pending:     pending,
		Rejected:    rejected,
		AcceptedPct: Ratio(float64(accepted), float64(total)),
		PendingPct:  Ratio(float64(pending), float64(total)),
		RejectedPct: Ratio(float64(rejected), float64(total)),
		AcceptedValue: Sum(filter(plans, inState(dataset.PlanAccepted)), func(cp *dataset.CarePlan) float64 {
			return cp.DiscountedPrice.Float()
		}),
		TotalRows: total,
		Rows:      rows,
	}
}
