package form

// ValidationErrors maps a record id to the required fields that are empty.
// Records without missing fields have no entry.
type ValidationErrors map[string][]string

// Has reports whether field is flagged for the record.
func (e ValidationErrors) Has(id, field string) bool {
	for _, f := range e[id] {
		if f == field {
			return true
		}
	}
	return false
}

// Clear removes one flagged field and prunes the record entry once empty.
func (e ValidationErrors) Clear(id, field string) {
	fields, ok := e[id]
	if !ok {
		return
	}
	kept := fields[:0]
	for _, f := range fields {
		if f != field {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		delete(e, id)
		return
	}
	e[id] = kept
}

// Clone returns an independent copy.
func (e ValidationErrors) Clone() ValidationErrors {
	out := make(ValidationErrors, len(e))
	for id, fields := range e {
		out[id] = append([]string(nil), fields...)
	}
	return out
}

// Validate checks every required field of every record. Whitespace-only
// values count as empty. The result is never nil.
func Validate[R Record](records []R, schema Schema) ValidationErrors {
	required := schema.Required()
	errs := make(ValidationErrors)
	for _, r := range records {
		var missing []string
		for _, name := range required {
			if !Populated(r.Field(name)) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			errs[r.RecordID()] = missing
		}
	}
	return errs
}

// FirstInvalid returns the id of the first record, in list order, that has
// validation errors.
func FirstInvalid[R Record](records []R, errs ValidationErrors) (string, bool) {
	for _, r := range records {
		if _, ok := errs[r.RecordID()]; ok {
			return r.RecordID(), true
		}
	}
	return "", false
}
