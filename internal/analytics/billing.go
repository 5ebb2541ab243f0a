package analytics

import (
	"github.com/wolfman30/clinic-bi/internal/dataset"
)

type BillRow struct {
	ID          dataset.ID `json:"id"`
	Date        string     `json:"date"`
	PatientID   dataset.ID `json:"patient_id"`
	PatientName string     `json:"patient_name"`
	Gross       float64    `json:"gross"`
	Net         float64    `json:"net"`
	State       string     `json:"state"`
}

type BillingView struct {
	TotalBilled    float64   `json:"total_billed"`
	TotalNet       float64   `json:"total_net"`
	TotalCollected float64   `json:"total_collected"`
	OpenCredit     float64   `json:"open_credit"`
	CollectionRate float64   `json:"collection_rate"`
	BillStates     []Point   `json:"bill_states"`
	TotalRows      int       `json:"total_rows"`
	Rows           []BillRow `json:"rows"`
}

// Billing compares billed and collected amounts. Open credit is not clamped:
// it goes negative when more was collected than billed.
func (e *Engine) Billing(f Filter) BillingView {
	f = f.Normalize()
	d := FilterByLocation(e.data, f.Location)

	billed := totalGross(d.Bills)
	collected := totalCollected(d.Transactions)

	page := Paginate(d.Bills, f.Limit, f.Offset)
	rows := make([]BillRow, 0, len(page))
	for _, b := range page {
		rows = append(rows, BillRow{
			ID:          b.ID,
			Date:        b.Date.Display(),
			PatientID:   b.PatientID,
			PatientName: e.index.PatientName(b.PatientID),
			Gross:       b.Gross.Float(),
			Net:         b.Net.Float(),
			State:       b.State.Display(),
		})
	}

	return BillingView{
		TotalBilled:    billed,
		TotalNet:       Sum(d.Bills, func(b *dataset.Bill) float64 { return b.Net.Float() }),
		TotalCollected: collected,
		OpenCredit:     billed - collected,
		CollectionRate: Ratio(collected, billed),
		BillStates:     GroupCount(d.Bills, func(b *dataset.Bill) string { return string(b.State) }),
		TotalRows:      len(d.Bills),
		Rows:           rows,
	}
}
