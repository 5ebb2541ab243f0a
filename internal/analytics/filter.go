package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/clinic-bi/internal/dataset"
)

// Table pagination bounds. The default matches the dashboard table size.
const (
	DefaultPageSize = 15
	MaxPageSize     = 500
)

// Filter is the filter set a view request carries. Empty dimensions mean All.
type Filter struct {
	Location string `json:"location"`
	State    string `json:"state"`
	Role     string `json:"role"`
	Query    string `json:"q,omitempty"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

// Normalize trims every dimension, maps empty and case variants of "all" to
// All and applies pagination defaults.
func (f Filter) Normalize() Filter {
	norm := func(s string) string {
		if IsAll(s) {
			return All
		}
		return strings.TrimSpace(s)
	}
	out := Filter{
		Location: norm(f.Location),
		State:    norm(f.State),
		Role:     norm(f.Role),
		Query:    strings.TrimSpace(f.Query),
		Limit:    f.Limit,
		Offset:   f.Offset,
	}
	if out.Limit <= 0 {
		out.Limit = DefaultPageSize
	}
	if out.Limit > MaxPageSize {
		out.Limit = MaxPageSize
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

// Key is a canonical, order-stable encoding of the filter for cache keys.
func (f Filter) Key() string {
	n := f.Normalize()
	return fmt.Sprintf("loc=%s|state=%s|role=%s|q=%s|limit=%d|offset=%d",
		n.Location, n.State, n.Role, strings.ToLower(n.Query), n.Limit, n.Offset)
}

// IsAll reports whether a filter value selects everything.
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}

func parseLocation(v string) (dataset.ID, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return dataset.ID(id), true
}

// FilterByLocation restricts a dataset to one location. Patients match on
// their own locationId; bills, care plans and transactions match through
// their patient; appointments match on their own locationId. Locations,
// operators and chairs pass through. All returns d itself. A location that is
// not an integer id matches nothing.
func FilterByLocation(d *dataset.Dataset, location string) *dataset.Dataset {
	if d == nil {
		d = dataset.Normalize(nil)
	}
	if IsAll(location) {
		return d
	}
	locID, ok := parseLocation(location)

	patients := filter(d.Patients, func(p *dataset.Patient) bool { return ok && p.LocationID == locID })
	patientIDs := make(map[dataset.ID]struct{}, len(patients))
	for _, p := range patients {
		if p.ID != 0 {
			patientIDs[p.ID] = struct{}{}
		}
	}
	atLocation := func(patientID dataset.ID) bool {
		_, found := patientIDs[patientID]
		return found
	}

	return &dataset.Dataset{
		Patients:     patients,
		Locations:    d.Locations,
		Operators:    d.Operators,
		Appointments: filter(d.Appointments, func(a *dataset.Appointment) bool { return ok && a.LocationID == locID }),
		Bills:        filter(d.Bills, func(b *dataset.Bill) bool { return atLocation(b.PatientID) }),
		CarePlans:    filter(d.CarePlans, func(cp *dataset.CarePlan) bool { return atLocation(cp.PatientID) }),
		Chairs:       d.Chairs,
		Transactions: filter(d.Transactions, func(t *dataset.Transaction) bool { return atLocation(t.PatientID) }),
	}
}

// FilterByState keeps appointments whose state matches exactly.
func FilterByState(appointments []dataset.Appointment, state string) []dataset.Appointment {
	if IsAll(state) {
		return appointments
	}
	state = strings.TrimSpace(state)
	return filter(appointments, func(a *dataset.Appointment) bool { return string(a.State) == state })
}

// FilterByOperator applies the location and role predicates conjunctively.
func FilterByOperator(operators []dataset.Operator, location, role string) []dataset.Operator {
	if IsAll(location) && IsAll(role) {
		return operators
	}
	locID, locOK := parseLocation(location)
	role = strings.TrimSpace(role)
	return filter(operators, func(o *dataset.Operator) bool {
		if !IsAll(location) && (!locOK || o.LocationID != locID) {
			return false
		}
		if !IsAll(role) && string(o.Role) != role {
			return false
		}
		return true
	})
}

// SearchPatients matches term case-insensitively against full name or email.
func SearchPatients(patients []dataset.Patient, term string) []dataset.Patient {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return patients
	}
	return filter(patients, func(p *dataset.Patient) bool {
		return strings.Contains(strings.ToLower(string(p.FullName)), term) ||
			strings.Contains(strings.ToLower(string(p.Email)), term)
	})
}

// Paginate returns the window [offset, offset+limit) of rows, clamped to the
// slice bounds.
func Paginate[T any](rows []T, limit, offset int) []T {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, end-offset)
	copy(out, rows[offset:end])
	return out
}
