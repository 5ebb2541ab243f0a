package analytics

import (
	"github.com/wolfman30/clinic-bi/internal/dataset"
)

// NoShowHealthyThreshold is the no-show rate (percent) below which the
// dashboard shows the rate as healthy.
const NoShowHealthyThreshold = 15.0

type LocationPerformance struct {
	ID              dataset.ID `json:"id"`
	Name            string     `json:"name"`
	City            string     `json:"city"`
	Revenue         float64    `json:"revenue"`
	Appointments    int        `json:"appointments"`
	RevenueSharePct float64    `json:"revenue_share_pct"`
}

type Overview struct {
	Location              string                `json:"location"`
	TotalRevenue          float64               `json:"total_revenue"`
	TotalCollected        float64               `json:"total_collected"`
	TotalPatients         int                   `json:"total_patients"`
	ActivePatients        int                   `json:"active_patients"`
	TotalAppointments     int                   `json:"total_appointments"`
	CompletedAppointments int                   `json:"completed_appointments"`
	NoShowRate            float64               `json:"no_show_rate"`
	NoShowHealthy         bool                  `json:"no_show_healthy"`
	TotalDurationHours    float64               `json:"total_duration_hours"`
	RevenuePerChairHour   float64               `json:"revenue_per_chair_hour"`
	TotalCarePlans        int                   `json:"total_care_plans"`
	AcceptedCarePlans     int                   `json:"accepted_care_plans"`
	AcceptanceRate        float64               `json:"acceptance_rate"`
	AvgCarePlanValue      float64               `json:"avg_care_plan_value"`
	RevenueTrend          Trend                 `json:"revenue_trend"`
	LocationPerformance   []LocationPerformance `json:"location_performance"`
	AppointmentTypes      []Point               `json:"appointment_types"`
}

// Overview computes the headline KPIs for the filtered location. Location
// performance always covers the whole dataset.
func (e *Engine) Overview(f Filter) Overview {
	f = f.Normalize()
	d := FilterByLocation(e.data, f.Location)

	revenue := totalGross(d.Bills)
	collected := totalCollected(d.Transactions)
	hours := totalMinutes(d.Appointments) / 60

	active := make(map[dataset.ID]struct{})
	for _, a := range d.Appointments {
		active[a.PatientID] = struct{}{}
	}

	missed := CountWhere(d.Appointments, func(a *dataset.Appointment) bool {
		return a.State == dataset.StateNoShow || a.State == dataset.StateCancelled
	})
	noShowRate := Ratio(float64(missed), float64(len(d.Appointments)))

	isAccepted := func(cp *dataset.CarePlan) bool { return cp.State == dataset.PlanAccepted }
	accepted := filter(d.CarePlans, isAccepted)
	acceptedValue := Sum(accepted, func(cp *dataset.CarePlan) float64 { return cp.DiscountedPrice.Float() })

	return Overview{
		Location:              f.Location,
		TotalRevenue:          revenue,
		TotalCollected:        collected,
		TotalPatients:         Count(d.Patients),
		ActivePatients:        len(active),
		TotalAppointments:     Count(d.Appointments),
		CompletedAppointments: CountWhere(d.Appointments, hasState(dataset.StateCompleted)),
		NoShowRate:            noShowRate,
		NoShowHealthy:         noShowRate < NoShowHealthyThreshold,
		TotalDurationHours:    Round1(hours),
		RevenuePerChairHour:   SafeDiv(revenue, hours),
		TotalCarePlans:        Count(d.CarePlans),
		AcceptedCarePlans:     len(accepted),
		AcceptanceRate:        Ratio(float64(len(accepted)), float64(len(d.CarePlans))),
		AvgCarePlanValue:      SafeDiv(acceptedValue, float64(len(accepted))),
		RevenueTrend:          e.trend(d.Bills, d.Transactions),
		LocationPerformance:   e.locationPerformance(),
		AppointmentTypes:      GroupCount(d.Appointments, func(a *dataset.Appointment) string { return string(a.Type) }),
	}
}

func (e *Engine) locationPerformance() []LocationPerformance {
	revenue := e.revenueByLocation()
	appointments := make(map[dataset.ID]int)
	for _, a := range e.data.Appointments {
		appointments[a.LocationID]++
	}

	out := make([]LocationPerformance, 0, len(e.data.Locations))
	var best float64
	for _, l := range e.data.Locations {
		rev := revenue[l.ID]
		if rev > best {
			best = rev
		}
		out = append(out, LocationPerformance{
			ID:           l.ID,
			Name:         l.Name.Display(),
			City:         l.City.Display(),
			Revenue:      rev,
			Appointments: appointments[l.ID],
		})
	}
	for i := range out {
		out[i].RevenueSharePct = Ratio(out[i].Revenue, best)
	}
	return out
}

// revenueByLocation attributes gross bills to the location of the billed
// patient. Bills of unknown patients belong to no location.
func (e *Engine) revenueByLocation() map[dataset.ID]float64 {
	out := make(map[dataset.ID]float64)
	for _, b := range e.data.Bills {
		if p, ok := e.index.Patient(b.PatientID); ok {
			out[p.LocationID] += b.Gross.Float()
		}
	}
	return out
}
