// Package identity turns a signed-in user's e-mail into the short agent token
// that namespaces their documents.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMapping is the built-in local-part to agent table.
var DefaultMapping = map[string]string{
	"lovely": "LOVELY",
	"jhe":    "JHE",
	"kyrie":  "KYRIE",
	"primo":  "PRIMO",
	"cu":     "CU",
	"mar":    "MAR",
	"ken":    "KEN",
	"kel":    "KEL",
}

// Resolver maps e-mail addresses to agent identities.
type Resolver struct {
	mapping map[string]string
}

// NewResolver builds a Resolver over mapping, or DefaultMapping when nil.
// Keys are matched case-insensitively.
func NewResolver(mapping map[string]string) *Resolver {
	if mapping == nil {
		mapping = DefaultMapping
	}
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Resolver{mapping: m}
}

// Resolve returns the mapped identity for the e-mail's local part, falling
// back to the upper-cased local part.
func (r *Resolver) Resolve(email string) string {
	local := strings.ToLower(LocalPart(email))
	if agent, ok := r.mapping[local]; ok {
		return agent
	}
	// Casers keep state, so one is built per call.
	return cases.Upper(language.Und).String(local)
}

// LocalPart returns everything before the first "@".
func LocalPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
