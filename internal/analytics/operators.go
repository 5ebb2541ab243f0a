package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/wolfman30/clinic-bi/internal/dataset"
)

// ChartSize is the number of operators shown on the revenue chart.
const ChartSize = 8

type OperatorStats struct {
	ID                    dataset.ID `json:"id"`
	FullName              string     `json:"full_name"`
	Role                  string     `json:"role"`
	LocationID            dataset.ID `json:"location_id"`
	LocationName          string     `json:"location_name"`
	Appointments          int        `json:"appointments"`
	CompletedAppointments int        `json:"completed_appointments"`
	Hours                 float64    `json:"hours"`
	Patients              int        `json:"patients"`
	Revenue               float64    `json:"revenue"`
	RevenuePerHour        float64    `json:"revenue_per_hour"`

	rawHours float64
}

type OperatorChartPoint struct {
	Name     string  `json:"name"`
	RevenueK float64 `json:"revenue_k"`
	Hours    float64 `json:"hours"`
}

type OperatorsView struct {
	Attribution           Attribution          `json:"attribution"`
	SharedPatients        int                  `json:"shared_patients"`
	TotalOperators        int                  `json:"total_operators"`
	TotalRevenue          float64              `json:"total_revenue"`
	AvgRevenuePerOperator float64              `json:"avg_revenue_per_operator"`
	AvgRevenuePerHour     float64              `json:"avg_revenue_per_hour"`
	TopPerformer          *OperatorStats       `json:"top_performer"`
	Roles                 []string             `json:"roles"`
	Chart                 []OperatorChartPoint `json:"chart"`
	Operators             []OperatorStats      `json:"operators"`
}

type operatorLoad struct {
	appointments int
	completed    int
	minutes      float64
	patients     []dataset.ID       // distinct, first-seen order
	visits       map[dataset.ID]int // appointments per patient
	counted      bool
}

// Operators ranks the operators matching the location and role filters by
// attributed revenue. Ties keep dataset order.
func (e *Engine) Operators(f Filter) OperatorsView {
	f = f.Normalize()
	operators := FilterByOperator(e.data.Operators, f.Location, f.Role)
	bills := billTotals(e.data.Bills)

	loads := make(map[dataset.ID]*operatorLoad, len(operators))
	for _, o := range operators {
		loads[o.ID] = &operatorLoad{visits: make(map[dataset.ID]int)}
	}
	patientVisits := make(map[dataset.ID]int)
	for _, a := range e.data.Appointments {
		patientVisits[a.PatientID]++
		load, ok := loads[a.OperatorID]
		if !ok {
			continue
		}
		load.appointments++
		if a.State == dataset.StateCompleted {
			load.completed++
		}
		load.minutes += a.Duration.Float()
		if load.visits[a.PatientID] == 0 {
			load.patients = append(load.patients, a.PatientID)
		}
		load.visits[a.PatientID]++
	}

	seenBy := make(map[dataset.ID]int)
	stats := make([]OperatorStats, 0, len(operators))
	for _, o := range operators {
		load := loads[o.ID]
		var revenue float64
		for _, pid := range load.patients {
			if !load.counted {
				seenBy[pid]++
			}
			if e.opts.Attribution == AttributionSplit {
				revenue += bills[pid] * SafeDiv(float64(load.visits[pid]), float64(patientVisits[pid]))
			} else {
				revenue += bills[pid]
			}
		}
		load.counted = true
		hours := load.minutes / 60
		stats = append(stats, OperatorStats{
			ID:                    o.ID,
			FullName:              o.FullName.Display(),
			Role:                  o.Role.Display(),
			LocationID:            o.LocationID,
			LocationName:          e.index.LocationName(o.LocationID),
			Appointments:          load.appointments,
			CompletedAppointments: load.completed,
			Hours:                 Round1(hours),
			Patients:              len(load.patients),
			Revenue:               revenue,
			RevenuePerHour:        SafeDiv(revenue, hours),
			rawHours:              hours,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Revenue > stats[j].Revenue })

	shared := 0
	for _, n := range seenBy {
		if n > 1 {
			shared++
		}
	}

	total := Sum(stats, func(s *OperatorStats) float64 { return s.Revenue })
	view := OperatorsView{
		Attribution:           e.opts.Attribution,
		SharedPatients:        shared,
		TotalOperators:        len(stats),
		TotalRevenue:          total,
		AvgRevenuePerOperator: SafeDiv(total, float64(len(stats))),
		AvgRevenuePerHour:     SafeDiv(Sum(stats, func(s *OperatorStats) float64 { return s.RevenuePerHour }), float64(len(stats))),
		Roles:                 operatorRoles(e.data.Operators),
		Chart:                 operatorChart(stats),
		Operators:             stats,
	}
	if len(stats) > 0 {
		top := stats[0]
		view.TopPerformer = &top
	}
	return view
}

// operatorRoles lists the distinct non-empty roles in first-seen order.
func operatorRoles(operators []dataset.Operator) []string {
	roles := []string{}
	seen := make(map[string]struct{})
	for _, o := range operators {
		role := strings.TrimSpace(string(o.Role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles
}

func operatorChart(stats []OperatorStats) []OperatorChartPoint {
	n := len(stats)
	if n > ChartSize {
		n = ChartSize
	}
	chart := make([]OperatorChartPoint, 0, n)
	for _, s := range stats[:n] {
		name := s.ID.String()
		if fields := strings.Fields(s.FullName); len(fields) > 0 && s.FullName != "-" {
			name = fields[0]
		}
		chart = append(chart, OperatorChartPoint{
			Name:     name,
			RevenueK: math.Round(s.Revenue / 1000),
			Hours:    math.Round(s.rawHours),
		})
	}
	return chart
}
