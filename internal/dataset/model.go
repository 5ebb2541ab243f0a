// Package dataset holds the clinic dataset: its entities, the tolerant JSON
// decoder, the sources it is loaded from and the id indexes built on top.
package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID identifies an entity. JSON numbers and numeric strings decode to their
// value; anything else decodes to 0. NewIndex leaves id 0 unindexed, so an
// absent id never joins to an entity that also lacks one.
type ID int64

// UnmarshalJSON never fails; malformed ids become 0.
func (id *ID) UnmarshalJSON(b []byte) error {
	*id = 0
	s := strings.TrimSpace(string(b))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*id = ID(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		*id = ID(f)
	}
	return nil
}

// String renders the id in decimal.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Number is a numeric field. Anything that is not a JSON number decodes to 0.
type Number float64

// UnmarshalJSON never fails; non-numeric values become 0.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || !(b[0] == '-' || (b[0] >= '0' && b[0] <= '9')) {
		return nil
	}
	if v, err := strconv.ParseFloat(string(b), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		*n = Number(v)
	}
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

// Text is a string field. Anything that is not a JSON string decodes to "".
type Text string

// UnmarshalJSON never fails; non-string values become "".
func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
	}
	return nil
}

// String returns the raw value.
func (t Text) String() string { return string(t) }

// Display returns the value or "-" when empty.
func (t Text) Display() string {
	if strings.TrimSpace(string(t)) == "" {
		return "-"
	}
	return string(t)
}

type Patient struct {
	ID         ID   `json:"id"`
	FullName   Text `json:"FullName"`
	Email      Text `json:"email"`
	Phone      Text `json:"phone"`
	Gender     Text `json:"gender"`
	LeadSource Text `json:"leadSource"`
	LocationID ID   `json:"locationId"`
}

type Location struct {
	ID      ID   `json:"id"`
	Name    Text `json:"name"`
	City    Text `json:"city"`
	Address Text `json:"address"`
}

type Operator struct {
	ID         ID   `json:"id"`
	FullName   Text `json:"FullName"`
	Role       Text `json:"role"`
	LocationID ID   `json:"locationId"`
}

// Appointment states recognized by the aggregations. The set is open: any
// other value is carried through untouched.
const (
	StateScheduled = "scheduled"
	StateCompleted = "completed"
	StateNoShow    = "noshow"
	StateCancelled = "cancelled"
)

type Appointment struct {
	ID         ID     `json:"id"`
	PatientID  ID     `json:"patientId"`
	OperatorID ID     `json:"operatorId"`
	LocationID ID     `json:"locationId"`
	Date       Text   `json:"date"`
	Duration   Number `json:"duration"`
	Type       Text   `json:"type"`
	State      Text   `json:"state"`
}

type Bill struct {
	ID        ID     `json:"id"`
	PatientID ID     `json:"patientId"`
	Date      Text   `json:"date"`
	Gross     Number `json:"gross"`
	Net       Number `json:"net"`
	State     Text   `json:"state"`
}

type Transaction struct {
	ID        ID     `json:"id"`
	PatientID ID     `json:"patientId"`
	Amount    Number `json:"amount"`
	Date      Text   `json:"date"`
}

// Care plan states.
const (
	PlanPending  = "pending"
	PlanAccepted = "accepted"
	PlanRejected = "rejected"
)

type CarePlan struct {
	ID              ID     `json:"id"`
	PatientID       ID     `json:"patientId"`
	Name            Text   `json:"name"`
	Price           Number `json:"price"`
	DiscountedPrice Number `json:"discountedPrice"`
	State           Text   `json:"state"`
}

type Chair struct {
	ID         ID   `json:"id"`
	LocationID ID   `json:"locationId"`
	Name       Text `json:"name"`
}

// Dataset is the whole clinic document. It is never mutated after load;
// filters build new Datasets that share the unchanged collections.
type Dataset struct {
	Patients     []Patient     `json:"patients"`
	Locations    []Location    `json:"locations"`
	Operators    []Operator    `json:"operators"`
	Appointments []Appointment `json:"appointments"`
	Bills        []Bill        `json:"bills"`
	CarePlans    []CarePlan    `json:"care_plans"`
	Chairs       []Chair       `json:"chairs"`
	Transactions []Transaction `json:"transactions"`
}

// Counts reports the number of records per collection, keyed by JSON name.
func (d *Dataset) Counts() map[string]int {
	if d == nil {
		d = &Dataset{}
	}
	return map[string]int{
		"patients":     len(d.Patients),
		"locations":    len(d.Locations),
		"operators":    len(d.Operators),
		"appointments": len(d.Appointments),
		"bills":        len(d.Bills),
		"care_plans":   len(d.CarePlans),
		"chairs":       len(d.Chairs),
		"transactions": len(d.Transactions),
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the date formats found in exported clinic data.
func ParseDate(raw Text) (time.Time, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
