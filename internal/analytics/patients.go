package analytics

import (
	"math"
	"strings"

	"github.com/wolfman30/clinic-bi/internal/dataset"
)

// NewPatientShare estimates new patients as a fixed share of the total; the
// data carries no registration date.
const NewPatientShare = 0.3

type PatientRow struct {
	ID           dataset.ID `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Gender       string     `json:"gender"`
	LeadSource   string     `json:"lead_source"`
	LocationID   dataset.ID `json:"location_id"`
	LocationName string     `json:"location_name"`
}

type PatientsView struct {
	TotalPatients int          `json:"total_patients"`
	NewPatients   int          `json:"new_patients"`
	EmailCount    int          `json:"email_count"`
	WebLeadCount  int          `json:"web_lead_count"`
	LeadSources   []Point      `json:"lead_sources"`
	Query         string       `json:"q"`
	TotalRows     int          `json:"total_rows"`
	Rows          []PatientRow `json:"rows"`
}

// GenderLabel renders the gender code the way the patient table shows it.
func GenderLabel(code dataset.Text) string {
	switch strings.ToUpper(strings.TrimSpace(string(code))) {
	case "M":
		return "Maschio"
	case "F":
		return "Femmina"
	default:
		return "-"
	}
}

// Patients computes the patient KPIs for the filtered location. The table
// search always runs over every patient.
func (e *Engine) Patients(f Filter) PatientsView {
	f = f.Normalize()
	d := FilterByLocation(e.data, f.Location)

	total := Count(d.Patients)
	matches := SearchPatients(e.data.Patients, f.Query)
	page := Paginate(matches, f.Limit, f.Offset)

	rows := make([]PatientRow, 0, len(page))
	for _, p := range page {
		rows = append(rows, PatientRow{
			ID:           p.ID,
			FullName:     p.FullName.Display(),
			Email:        p.Email.Display(),
			Phone:        p.Phone.Display(),
			Gender:       GenderLabel(p.Gender),
			LeadSource:   p.LeadSource.Display(),
			LocationID:   p.LocationID,
			LocationName: e.index.LocationName(p.LocationID),
		})
	}

	return PatientsView{
		TotalPatients: total,
		NewPatients:   int(math.Floor(float64(total) * NewPatientShare)),
		EmailCount: CountWhere(d.Patients, func(p *dataset.Patient) bool {
			return strings.TrimSpace(string(p.Email)) != ""
		}),
		WebLeadCount: CountWhere(d.Patients, func(p *dataset.Patient) bool { return p.LeadSource == "Web" }),
		LeadSources:  GroupCount(d.Patients, func(p *dataset.Patient) string { return string(p.LeadSource) }),
		Query:        f.Query,
		TotalRows:    len(matches),
		Rows:         rows,
	}
}
