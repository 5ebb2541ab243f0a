package analytics

import (
	"github.com/wolfman30/clinic-bi/internal/dataset"
)

type AppointmentRow struct {
	ID           dataset.ID `json:"id"`
	Date         string     `json:"date"`
	PatientID    dataset.ID `json:"patient_id"`
	PatientName  string     `json:"patient_name"`
	OperatorID   dataset.ID `json:"operator_id"`
	OperatorName string     `json:"operator_name"`
	LocationName string     `json:"location_name"`
	Type         string     `json:"type"`
	Duration     float64    `json:"duration"`
	State        string     `json:"state"`
}

type AppointmentsView struct {
	Total        int              `json:"total"`
	Completed    int              `json:"completed"`
	NoShow       int              `json:"noshow"`
	Cancelled    int              `json:"cancelled"`
	Scheduled    int              `json:"scheduled"`
	CompletedPct float64          `json:"completed_pct"`
	NoShowPct    float64          `json:"noshow_pct"`
	CancelledPct float64          `json:"cancelled_pct"`
	ScheduledPct float64          `json:"scheduled_pct"`
	States       []Point          `json:"states"`
	State        string           `json:"state"`
	TotalRows    int              `json:"total_rows"`
	Rows         []AppointmentRow `json:"rows"`
}

// Appointments counts appointments per state for the filtered location. The
// state filter narrows the table rows only.
func (e *Engine) Appointments(f Filter) AppointmentsView {
	f = f.Normalize()
	appts := FilterByLocation(e.data, f.Location).Appointments

	total := len(appts)
	completed := CountWhere(appts, hasState(dataset.StateCompleted))
	noShow := CountWhere(appts, hasState(dataset.StateNoShow))
	cancelled := CountWhere(appts, hasState(dataset.StateCancelled))
	scheduled := CountWhere(appts, hasState(dataset.StateScheduled))

	selected := FilterByState(appts, f.State)
	page := Paginate(selected, f.Limit, f.Offset)
	rows := make([]AppointmentRow, 0, len(page))
	for _, a := range page {
		operator := "-"
		if o, ok := e.index.Operator(a.OperatorID); ok {
			operator = o.FullName.Display()
		}
		rows = append(rows, AppointmentRow{
			ID:           a.ID,
			Date:         a.Date.Display(),
			PatientID:    a.PatientID,
			PatientName:  e.index.PatientName(a.PatientID),
			OperatorID:   a.OperatorID,
			OperatorName: operator,
			LocationName: e.index.LocationName(a.LocationID),
			Type:         a.Type.Display(),
			Duration:     a.Duration.Float(),
			State:        a.State.Display(),
		})
	}

	return AppointmentsView{
		Total:        total,
		Completed:    completed,
		NoShow:       noShow,
		Cancelled:    cancelled,
		Scheduled:    scheduled,
		CompletedPct: Ratio(float64(completed), float64(total)),
		NoShowPct:    Ratio(float64(noShow), float64(total)),
		CancelledPct: Ratio(float64(cancelled), float64(total)),
		ScheduledPct: Ratio(float64(scheduled), float64(total)),
		States:       GroupCount(appts, func(a *dataset.Appointment) string { return string(a.State) }),
		State:        f.State,
		TotalRows:    len(selected),
		Rows:         rows,
	}
}
