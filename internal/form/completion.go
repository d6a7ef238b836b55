package form

import "math"

// RecordProgress is the per-row completion shown next to each record.
type RecordProgress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// Completion returns the rounded percentage of populated counted header fields
// plus populated required record fields. A form with nothing to count is 0%.
func Completion[R Record](header Header, records []R, schema Schema) int {
	required := schema.Required()
	total := len(required) * len(records)
	completed := 0
	if header != nil {
		total += header.CountedFields()
		completed += header.PopulatedFields()
	}
	for _, r := range records {
		completed += countPopulated(r, required)
	}
	return percent(completed, total)
}

// RecordCompletion reports progress over the required fields of one record.
func RecordCompletion(record Record, schema Schema) RecordProgress {
	required := schema.Required()
	done := countPopulated(record, required)
	return RecordProgress{
		Completed:  done,
		Total:      len(required),
		Percentage: percent(done, len(required)),
	}
}

func countPopulated(r Record, fields []string) int {
	n := 0
	for _, name := range fields {
		if Populated(r.Field(name)) {
			n++
		}
	}
	return n
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(done) / float64(total)))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
