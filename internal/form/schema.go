// Package form holds the schema-driven checks shared by every editable form:
// required-field validation and completion tracking. Everything here is pure;
// the stateful parts live with the form that owns the records.
package form

import "strings"

// FieldSpec declares one field of a record schema.
type FieldSpec struct {
	Name     string
	Label    string
	Required bool
}

// Schema is the ordered field list of a record type. Field order is the order
// in which missing fields are reported.
type Schema struct {
	Fields []FieldSpec
}

// Required returns the names of the required fields in schema order.
func (s Schema) Required() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Label returns the display label for a field, or the name itself.
func (s Schema) Label(name string) string {
	for _, f := range s.Fields {
		if f.Name == name && f.Label != "" {
			return f.Label
		}
	}
	return name
}

// Record is a sub-record addressed by a stable identifier.
type Record interface {
	RecordID() string
	Field(name string) string
}

// Header is the single flat part of a form that counts toward completion.
type Header interface {
	CountedFields() int
	PopulatedFields() int
}

// Populated reports whether v holds anything but whitespace.
func Populated(v string) bool {
	return strings.TrimSpace(v) != ""
}
