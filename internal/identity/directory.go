package identity

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

// Directory is the optional YAML file describing the team: the e-mail
// mapping table and the roster used to seed new reports.
//
//	agents:
//	  lovely: LOVELY
//	roster:
//	  - name: LOVELY
//	    addedToday: 2
type Directory struct {
	Agents map[string]string   `yaml:"agents"`
	Roster []model.RosterEntry `yaml:"roster"`
}

// LoadDirectory reads a Directory from path.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var dir Directory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("parse directory %s: %w", path, err)
	}
	return &dir, nil
}

// Resolver builds a Resolver from the file's table, falling back to the
// built-in table when the file has none.
func (d *Directory) Resolver() *Resolver {
	if d == nil || len(d.Agents) == 0 {
		return NewResolver(nil)
	}
	return NewResolver(d.Agents)
}

// StaticRoster answers roster lookups from a fixed list.
type StaticRoster struct {
	entries map[string]model.RosterEntry
}

// NewStaticRoster indexes entries by upper-cased name.
func NewStaticRoster(entries []model.RosterEntry) *StaticRoster {
	m := make(map[string]model.RosterEntry, len(entries))
	for _, e := range entries {
		m[strings.ToUpper(e.Name)] = e
	}
	return &StaticRoster{entries: m}
}

// TeamRoster indexes the file's roster for lookups.
func (d *Directory) TeamRoster() *StaticRoster {
	if d == nil {
		return NewStaticRoster(nil)
	}
	return NewStaticRoster(d.Roster)
}

// Lookup finds an agent by name, ignoring case.
func (r *StaticRoster) Lookup(name string) (model.RosterEntry, bool) {
	e, ok := r.entries[strings.ToUpper(name)]
	return e, ok
}
