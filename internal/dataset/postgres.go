package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads every collection from the tables created by the
// migrations package. Nullable columns are coalesced to the same defaults the
// JSON decoder applies.
type PostgresSource struct {
	db     pgQuerier
	tracer trace.Tracer
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	if pool == nil {
		panic("dataset: pgx pool required for postgres source")
	}
	return NewPostgresSourceWithDB(pool)
}

// NewPostgresSourceWithDB allows injecting a mock database for testing.
func NewPostgresSourceWithDB(db pgQuerier) *PostgresSource {
	return &PostgresSource{db: db, tracer: otel.Tracer("clinicbi.internal.dataset.postgres")}
}

func (s *PostgresSource) Name() string { return "postgres" }

const (
	patientsQuery = `SELECT id, COALESCE(full_name, ''), COALESCE(email, ''), COALESCE(phone, ''),
		COALESCE(gender, ''), COALESCE(lead_source, ''), COALESCE(location_id, 0)
		FROM patients ORDER BY id`
	locationsQuery = `SELECT id, COALESCE(name, ''), COALESCE(city, ''), COALESCE(address, '')
		FROM locations ORDER BY id`
	operatorsQuery = `SELECT id, COALESCE(full_name, ''), COALESCE(role, ''), COALESCE(location_id, 0)
		FROM operators ORDER BY id`
	appointmentsQuery = `SELECT id, COALESCE(patient_id, 0), COALESCE(operator_id, 0), COALESCE(location_id, 0),
		COALESCE(appointment_date::text, ''), COALESCE(duration_minutes, 0)::float8, COALESCE(type, ''), COALESCE(state, '')
		FROM appointments ORDER BY id`
	billsQuery = `SELECT id, COALESCE(patient_id, 0), COALESCE(bill_date::text, ''),
		COALESCE(gross, 0)::float8, COALESCE(net, 0)::float8, COALESCE(state, '')
		FROM bills ORDER BY id`
	carePlansQuery = `SELECT id, COALESCE(patient_id, 0), COALESCE(name, ''),
		COALESCE(price, 0)::float8, COALESCE(discounted_price, 0)::float8, COALESCE(state, '')
		FROM care_plans ORDER BY id`
	chairsQuery = `SELECT id, COALESCE(location_id, 0), COALESCE(name, '')
		FROM chairs ORDER BY id`
	transactionsQuery = `SELECT id, COALESCE(patient_id, 0), COALESCE(amount, 0)::float8, COALESCE(transaction_date::text, '')
		FROM transactions ORDER BY id`
)

func (s *PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	ctx, span := s.tracer.Start(ctx, "dataset.postgres.load")
	defer span.End()

	d, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load")
		return nil, err
	}
	return d, nil
}

func (s *PostgresSource) load(ctx context.Context) (*Dataset, error) {
	var (
		d   Dataset
		err error
	)
	if d.Patients, err = queryAll(ctx, s.db, "patients", patientsQuery, func(rows pgx.Rows) (Patient, error) {
		var (
			id, locationID                         int64
			name, email, phone, gender, leadSource string
		)
		err := rows.Scan(&id, &name, &email, &phone, &gender, &leadSource, &locationID)
		return Patient{ID: ID(id), FullName: Text(name), Email: Text(email), Phone: Text(phone),
			Gender: Text(gender), LeadSource: Text(leadSource), LocationID: ID(locationID)}, err
	}); err != nil {
		return nil, err
	}
	if d.Locations, err = queryAll(ctx, s.db, "locations", locationsQuery, func(rows pgx.Rows) (Location, error) {
		var (
			id                  int64
			name, city, address string
		)
		err := rows.Scan(&id, &name, &city, &address)
		return Location{ID: ID(id), Name: Text(name), City: Text(city), Address: Text(address)}, err
	}); err != nil {
		return nil, err
	}
	if d.Operators, err = queryAll(ctx, s.db, "operators", operatorsQuery, func(rows pgx.Rows) (Operator, error) {
		var (
			id, locationID int64
			name, role     string
		)
		err := rows.Scan(&id, &name, &role, &locationID)
		return Operator{ID: ID(id), FullName: Text(name), Role: Text(role), LocationID: ID(locationID)}, err
	}); err != nil {
		return nil, err
	}
	if d.Appointments, err = queryAll(ctx, s.db, "appointments", appointmentsQuery, func(rows pgx.Rows) (Appointment, error) {
		var (
			id, patientID, operatorID, locationID int64
			date, typ, state                      string
			duration                              float64
		)
		err := rows.Scan(&id, &patientID, &operatorID, &locationID, &date, &duration, &typ, &state)
		return Appointment{ID: ID(id), PatientID: ID(patientID), OperatorID: ID(operatorID), LocationID: ID(locationID),
			Date: Text(date), Duration: Number(duration), Type: Text(typ), State: Text(state)}, err
	}); err != nil {
		return nil, err
	}
	if d.Bills, err = queryAll(ctx, s.db, "bills", billsQuery, func(rows pgx.Rows) (Bill, error) {
		var (
			id, patientID int64
			date, state   string
			gross, net    float64
		)
		err := rows.Scan(&id, &patientID, &date, &gross, &net, &state)
		return Bill{ID: ID(id), PatientID: ID(patientID), Date: Text(date), Gross: Number(gross), Net: Number(net), State: Text(state)}, err
	}); err != nil {
		return nil, err
	}
	if d.CarePlans, err = queryAll(ctx, s.db, "care_plans", carePlansQuery, func(rows pgx.Rows) (CarePlan, error) {
		var (
			id, patientID     int64
			name, state       string
			price, discounted float64
		)
		err := rows.Scan(&id, &patientID, &name, &price, &discounted, &state)
		return CarePlan{ID: ID(id), PatientID: ID(patientID), Name: Text(name), Price: Number(price),
			DiscountedPrice: Number(discounted), State: Text(state)}, err
	}); err != nil {
		return nil, err
	}
	if d.Chairs, err = queryAll(ctx, s.db, "chairs", chairsQuery, func(rows pgx.Rows) (Chair, error) {
		var (
			id, locationID int64
			name           string
		)
		err := rows.Scan(&id, &locationID, &name)
		return Chair{ID: ID(id), LocationID: ID(locationID), Name: Text(name)}, err
	}); err != nil {
		return nil, err
	}
	if d.Transactions, err = queryAll(ctx, s.db, "transactions", transactionsQuery, func(rows pgx.Rows) (Transaction, error) {
		var (
			id, patientID int64
			amount        float64
			date          string
		)
		err := rows.Scan(&id, &patientID, &amount, &date)
		return Transaction{ID: ID(id), PatientID: ID(patientID), Amount: Number(amount), Date: Text(date)}, err
	}); err != nil {
		return nil, err
	}
	return &d, nil
}

func queryAll[T any](ctx context.Context, db pgQuerier, table, sql string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("dataset: query %s: %w", table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("dataset: scan %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dataset: iterate %s: %w", table, err)
	}
	return out, nil
}
