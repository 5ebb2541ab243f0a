package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeStats reports records that were dropped while decoding: elements of a
// collection that were not JSON objects, and top-level collections that were
// present but not arrays.
type DecodeStats struct {
	SkippedRecords     map[string]int
	InvalidCollections []string
}

// Decode parses a clinic document. Absent or non-array collections become
// empty; only a document that is not a JSON object is an error.
func Decode(r io.Reader) (*Dataset, DecodeStats, error) {
	stats := DecodeStats{SkippedRecords: map[string]int{}}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, stats, fmt.Errorf("dataset: read document: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, stats, fmt.Errorf("dataset: document must be a JSON object")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, stats, fmt.Errorf("dataset: parse document: %w", err)
	}

	d := &Dataset{
		Patients:     decodeCollection[Patient](top, "patients", &stats),
		Locations:    decodeCollection[Location](top, "locations", &stats),
		Operators:    decodeCollection[Operator](top, "operators", &stats),
		Appointments: decodeCollection[Appointment](top, "appointments", &stats),
		Bills:        decodeCollection[Bill](top, "bills", &stats),
		CarePlans:    decodeCollection[CarePlan](top, "care_plans", &stats),
		Chairs:       decodeCollection[Chair](top, "chairs", &stats),
		Transactions: decodeCollection[Transaction](top, "transactions", &stats),
	}
	return d, stats, nil
}

func decodeCollection[T any](top map[string]json.RawMessage, name string, stats *DecodeStats) []T {
	out := []T{}
	raw, ok := top[name]
	if !ok {
		return out
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		if !bytes.Equal(raw, []byte("null")) {
			stats.InvalidCollections = append(stats.InvalidCollections, name)
		}
		return out
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		stats.InvalidCollections = append(stats.InvalidCollections, name)
		return out
	}
	for _, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			stats.SkippedRecords[name]++
			continue
		}
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			stats.SkippedRecords[name]++
			continue
		}
		out = append(out, v)
	}
	return out
}

// Normalize replaces nil collections with empty ones so every dataset,
// whatever its source, encodes and aggregates the same way.
func Normalize(d *Dataset) *Dataset {
	if d == nil {
		d = &Dataset{}
	}
	if d.Patients == nil {
		d.Patients = []Patient{}
	}
	if d.Locations == nil {
		d.Locations = []Location{}
	}
	if d.Operators == nil {
		d.Operators = []Operator{}
	}
	if d.Appointments == nil {
		d.Appointments = []Appointment{}
	}
	if d.Bills == nil {
		d.Bills = []Bill{}
	}
	if d.CarePlans == nil {
		d.CarePlans = []CarePlan{}
	}
	if d.Chairs == nil {
		d.Chairs = []Chair{}
	}
	if d.Transactions == nil {
		d.Transactions = []Transaction{}
	}
	return d
}

// Fingerprint returns a short content hash of the dataset. Two datasets with
// the same records in the same order share a fingerprint regardless of source.
func Fingerprint(d *Dataset) (string, error) {
	var c Dataset
	if d != nil {
		c = *d
	}
	data, err := json.Marshal(Normalize(&c))
	if err != nil {
		return "", fmt.Errorf("dataset: fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}
