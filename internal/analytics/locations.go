package analytics

import (
	"github.com/wolfman30/clinic-bi/internal/dataset"
)

type LocationStats struct {
	ID              dataset.ID `json:"id"`
	Name            string     `json:"name"`
	City            string     `json:"city"`
	Address         string     `json:"address"`
	Patients        int        `json:"patients"`
	Appointments    int        `json:"appointments"`
	Revenue         float64    `json:"revenue"`
	Chairs          int        `json:"chairs"`
	RevenuePerChair float64    `json:"revenue_per_chair"`
}

type LocationsView struct {
	Locations []LocationStats `json:"locations"`
}

// Locations rolls every location up over the whole dataset.
func (e *Engine) Locations() LocationsView {
	revenue := e.revenueByLocation()
	patients := make(map[dataset.ID]int)
	for _, p := range e.data.Patients {
		patients[p.LocationID]++
	}
	appointments := make(map[dataset.ID]int)
	for _, a := range e.data.Appointments {
		appointments[a.LocationID]++
	}
	chairs := make(map[dataset.ID]int)
	for _, c := range e.data.Chairs {
		chairs[c.LocationID]++
	}

	out := make([]LocationStats, 0, len(e.data.Locations))
	for _, l := range e.data.Locations {
		out = append(out, LocationStats{
			ID:              l.ID,
			Name:            l.Name.Display(),
			City:            l.City.Display(),
			Address:         l.Address.Display(),
			Patients:        patients[l.ID],
			Appointments:    appointments[l.ID],
			Revenue:         revenue[l.ID],
			Chairs:          chairs[l.ID],
			RevenuePerChair: SafeDiv(revenue[l.ID], float64(chairs[l.ID])),
		})
	}
	return LocationsView{Locations: out}
}
