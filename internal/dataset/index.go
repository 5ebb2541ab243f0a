package dataset

import "fmt"

// IndexByID maps each item's key to a pointer into items. Duplicate keys:
// the last item wins.
func IndexByID[T any, K comparable](items []T, key func(*T) K) map[K]*T {
	out := make(map[K]*T, len(items))
	for i := range items {
		out[key(&items[i])] = &items[i]
	}
	return out
}

// Index holds the id lookups the aggregations join against. It is built once
// per loaded dataset and shared read-only.
type Index struct {
	Patients  map[ID]*Patient
	Locations map[ID]*Location
	Operators map[ID]*Operator
}

func NewIndex(d *Dataset) *Index {
	if d == nil {
		d = &Dataset{}
	}
	ix := &Index{
		Patients:  IndexByID(d.Patients, func(p *Patient) ID { return p.ID }),
		Locations: IndexByID(d.Locations, func(l *Location) ID { return l.ID }),
		Operators: IndexByID(d.Operators, func(o *Operator) ID { return o.ID }),
	}
	delete(ix.Patients, 0)
	delete(ix.Locations, 0)
	delete(ix.Operators, 0)
	return ix
}

func (ix *Index) Patient(id ID) (*Patient, bool) {
	p, ok := ix.Patients[id]
	return p, ok
}

func (ix *Index) Location(id ID) (*Location, bool) {
	l, ok := ix.Locations[id]
	return l, ok
}

func (ix *Index) Operator(id ID) (*Operator, bool) {
	o, ok := ix.Operators[id]
	return o, ok
}

// PatientName resolves a patient's full name, falling back to "ID: <id>" for
// dangling references and unnamed patients.
func (ix *Index) PatientName(id ID) string {
	if p, ok := ix.Patients[id]; ok && p.FullName != "" {
		return string(p.FullName)
	}
	return fmt.Sprintf("ID: %d", id)
}

// LocationName resolves a location name, "-" when unknown.
func (ix *Index) LocationName(id ID) string {
	if l, ok := ix.Locations[id]; ok {
		return l.Name.Display()
	}
	return "-"
}
