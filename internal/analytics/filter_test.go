package analytics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-bi/internal/dataset"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

func loadFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", "clinic.json")
	d, err := dataset.NewFileSource(path, logging.New("error")).Load(context.Background())
	require.NoError(t, err)
	return d
}

func ids[T any](items []T, id func(*T) dataset.ID) []dataset.ID {
	out := make([]dataset.ID, 0, len(items))
	for i := range items {
		out = append(out, id(&items[i]))
	}
	return out
}

func TestFilterByLocationAllIsIdentity(t *testing.T) {
	d := loadFixture(t)
	for _, loc := range []string{"All", "", " all "} {
		assert.Same(t, d, FilterByLocation(d, loc), "location %q", loc)
	}
}

func TestFilterByLocationTransitiveJoin(t *testing.T) {
	d := loadFixture(t)
	got := FilterByLocation(d, "1")

	patientID := func(p *dataset.Patient) dataset.ID { return p.ID }
	assert.Equal(t, []dataset.ID{1, 2}, ids(got.Patients, patientID))
	assert.Equal(t, []dataset.ID{100, 101, 102}, ids(got.Appointments, func(a *dataset.Appointment) dataset.ID { return a.ID }))
	assert.Equal(t, []dataset.ID{200, 201, 204}, ids(got.Bills, func(b *dataset.Bill) dataset.ID { return b.ID }))
	assert.Equal(t, []dataset.ID{300, 302}, ids(got.Transactions, func(tx *dataset.Transaction) dataset.ID { return tx.ID }))
	assert.Equal(t, []dataset.ID{400, 401}, ids(got.CarePlans, func(cp *dataset.CarePlan) dataset.ID { return cp.ID }))

	// reference collections pass through untouched
	assert.Len(t, got.Locations, 3)
	assert.Len(t, got.Operators, 3)
	assert.Len(t, got.Chairs, 3)

	// the input is not modified
	assert.Len(t, d.Patients, 4)
	assert.Len(t, d.Bills, 5)
}

func TestFilterByLocationIgnoresMissingPatientIDs(t *testing.T) {
	d := &dataset.Dataset{
		Patients: []dataset.Patient{{FullName: "Senza Id", LocationID: 1}, {ID: 1, LocationID: 1}},
		Bills:    []dataset.Bill{{ID: 1, PatientID: 1, Gross: 100}, {ID: 2, Gross: 999}},
	}
	got := FilterByLocation(d, "1")

	assert.Len(t, got.Patients, 2)
	assert.Equal(t, []dataset.ID{1}, ids(got.Bills, func(b *dataset.Bill) dataset.ID { return b.ID }))

	// the unowned bill counts toward the clinic total but no location
	overview := NewEngine(d, nil, Options{}).Overview(Filter{})
	assert.Equal(t, 1099.0, overview.TotalRevenue)
	assert.Equal(t, 100.0, NewEngine(d, nil, Options{}).Overview(Filter{Location: "1"}).TotalRevenue)
}

func TestFilterByLocationStringIDPatient(t *testing.T) {
	d := loadFixture(t)
	got := FilterByLocation(d, "2")
	assert.Equal(t, []dataset.ID{3, 4}, ids(got.Patients, func(p *dataset.Patient) dataset.ID { return p.ID }))
	assert.Equal(t, []dataset.ID{402, 403}, ids(got.CarePlans, func(cp *dataset.CarePlan) dataset.ID { return cp.ID }))
}

func TestFilterByLocationIdempotent(t *testing.T) {
	d := loadFixture(t)
	for _, loc := range []string{"1", "2", "3", "abc"} {
		once := FilterByLocation(d, loc)
		twice := FilterByLocation(once, loc)
		assert.Equal(t, once, twice, "location %q", loc)
	}
}

func TestFilterByLocationNoMatch(t *testing.T) {
	d := loadFixture(t)
	for _, loc := range []string{"3", "abc", "1.5"} {
		got := FilterByLocation(d, loc)
		assert.Empty(t, got.Patients, "location %q", loc)
		assert.Empty(t, got.Appointments, "location %q", loc)
		assert.Empty(t, got.Bills, "location %q", loc)
		assert.NotNil(t, got.Bills)
	}
}

func TestFilterByLocationNilDataset(t *testing.T) {
	got := FilterByLocation(nil, "1")
	require.NotNil(t, got)
	assert.Empty(t, got.Patients)
}

func TestFilterByState(t *testing.T) {
	d := loadFixture(t)
	assert.Equal(t, d.Appointments, FilterByState(d.Appointments, All))

	completed := FilterByState(d.Appointments, "completed")
	assert.Equal(t, []dataset.ID{100, 102}, ids(completed, func(a *dataset.Appointment) dataset.ID { return a.ID }))

	assert.Empty(t, FilterByState(d.Appointments, "Completed"), "state match is exact")
}

func TestFilterByOperatorConjunctive(t *testing.T) {
	d := loadFixture(t)
	opID := func(o *dataset.Operator) dataset.ID { return o.ID }

	tests := []struct {
		location, role string
		want           []dataset.ID
	}{
		{All, All, []dataset.ID{10, 11, 12}},
		{"1", All, []dataset.ID{10, 11}},
		{All, "Dentista", []dataset.ID{10, 12}},
		{"1", "Dentista", []dataset.ID{10}},
		{"2", "Igienista", []dataset.ID{}},
		{"abc", All, []dataset.ID{}},
	}
	for _, tt := range tests {
		got := FilterByOperator(d.Operators, tt.location, tt.role)
		assert.Equal(t, tt.want, ids(got, opID), "location=%q role=%q", tt.location, tt.role)
	}
}

func TestSearchPatients(t *testing.T) {
	d := loadFixture(t)
	pid := func(p *dataset.Patient) dataset.ID { return p.ID }

	assert.Equal(t, []dataset.ID{1}, ids(SearchPatients(d.Patients, "ROSSI"), pid))
	assert.Equal(t, []dataset.ID{1, 2}, ids(SearchPatients(d.Patients, "example.it"), pid))
	assert.Equal(t, []dataset.ID{1, 2, 3, 4}, ids(SearchPatients(d.Patients, "  "), pid))
	assert.Empty(t, SearchPatients(d.Patients, "zzz"))
}

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(rows, 2, 0))
	assert.Equal(t, []int{4, 5}, Paginate(rows, 2, 3))
	assert.Equal(t, []int{5}, Paginate(rows, 10, 4))
	assert.Equal(t, []int{}, Paginate(rows, 2, 10))
	assert.Equal(t, rows, Paginate(rows, 0, 0), "zero limit uses the default page size")
}

func TestFilterNormalizeAndKey(t *testing.T) {
	f := Filter{Location: " 1 ", State: "", Role: "all", Limit: 0, Offset: -3}.Normalize()
	assert.Equal(t, Filter{Location: "1", State: All, Role: All, Limit: DefaultPageSize}, f)

	big := Filter{Limit: 10_000}.Normalize()
	assert.Equal(t, MaxPageSize, big.Limit)

	a := Filter{Location: "1", Query: "Rossi"}
	b := Filter{Location: " 1", Query: "rossi ", State: "All", Limit: DefaultPageSize}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Filter{Location: "2"}.Key())
}
