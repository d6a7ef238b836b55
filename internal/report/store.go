package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/autosave"
	"github.com/dharsanguruparan/AgentDesk/internal/form"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
)

// Roster looks agents up on the team roster.
type Roster interface {
	Lookup(name string) (model.RosterEntry, bool)
}

// Deps carries everything a Store needs. Identity and Roster are resolved by
// the caller so the store never reaches for session globals.
type Deps struct {
	Identity      string
	Email         string
	Roster        Roster
	Gateway       gateway.Gateway
	Notifier      notify.Notifier
	Logger        *zap.Logger
	GenerateID    func() string
	Now           func() time.Time
	AutosaveDelay time.Duration
	AfterFunc     autosave.AfterFunc
}

// Store is the state of one report editing session.
type Store struct {
	deps     Deps
	log      *zap.Logger
	autosave *autosave.Scheduler

	mu           sync.Mutex
	header       model.ReportHeader
	clients      []model.Client
	expanded     map[string]bool
	errors       form.ValidationErrors
	lastModified time.Time
}

// NewStore builds a Store holding the blank defaults for deps.Identity. Call
// Hydrate to load the saved report.
func NewStore(deps Deps) *Store {
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	s := &Store{
		deps: deps,
		log:  deps.Logger.With(zap.String("identity", deps.Identity)),
	}
	s.autosave = autosave.New(s.persist, autosave.Options{
		Delay:     deps.AutosaveDelay,
		AfterFunc: deps.AfterFunc,
		Now:       deps.Now,
		Logger:    s.log,
		OnError:   s.onSaveError,
	})
	s.resetLocked(false)
	return s
}

// Identity returns the agent identity the store is bound to.
func (s *Store) Identity() string { return s.deps.Identity }

// resetLocked installs the first-time defaults. The roster only seeds counts
// for an agent with no saved report.
func (s *Store) resetLocked(seedFromRoster bool) {
	s.header = model.ReportHeader{AgentName: s.deps.Identity}
	if seedFromRoster && s.deps.Roster != nil {
		if entry, ok := s.deps.Roster.Lookup(s.deps.Identity); ok {
			s.header.AddedToday = entry.AddedToday
			s.header.MonthlyAdded = entry.MonthlyAdded
			s.header.OpenShops = entry.OpenAccounts
			s.header.Deposits = entry.TotalDeposits
		}
	}
	blank := model.NewClient(s.deps.GenerateID())
	s.clients = []model.Client{blank}
	s.expanded = map[string]bool{blank.ID: true}
	s.errors = make(form.ValidationErrors)
}

// Hydrate replaces the local state with the saved report. It reports whether
// a saved report existed. A failed read leaves the blank defaults in place
// and tells the user; it never blocks editing.
func (s *Store) Hydrate(ctx context.Context) bool {
	var snap model.ReportSnapshot
	err := gateway.ReadJSON(ctx, s.deps.Gateway, gateway.ReportCollection(s.deps.Identity), gateway.CurrentReportID, &snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil:
		s.applySnapshotLocked(snap)
		s.log.Info("report hydrated", zap.Int("clients", len(s.clients)))
		return true
	case errors.Is(err, gateway.ErrNotFound):
		s.resetLocked(true)
		s.log.Info("no saved report, starting from defaults")
		return false
	default:
		s.resetLocked(true)
		s.log.Error("load report failed", zap.Error(err))
		s.deps.Notifier.Notify(notify.Error("Load Failed", "Could not load report"))
		return false
	}
}

func (s *Store) applySnapshotLocked(snap model.ReportSnapshot) {
	s.header = snap.ReportHeader
	if s.header.AgentName == "" {
		s.header.AgentName = s.deps.Identity
	}
	s.clients = make([]model.Client, 0, len(snap.Clients))
	s.expanded = make(map[string]bool, len(snap.Clients))
	seen := make(map[string]bool, len(snap.Clients))
	for _, c := range snap.Clients {
		if c.ID == "" || seen[c.ID] {
			c.ID = s.deps.GenerateID()
		}
		seen[c.ID] = true
		s.clients = append(s.clients, c)
		s.expanded[c.ID] = true
	}
	if len(s.clients) == 0 {
		blank := model.NewClient(s.deps.GenerateID())
		s.clients = append(s.clients, blank)
		s.expanded[blank.ID] = true
	}
	s.errors = make(form.ValidationErrors)
	s.lastModified = snap.LastModified
}

// SetHeaderField updates one header field.
func (s *Store) SetHeaderField(name, value string) error {
	s.mu.Lock()
	err := s.header.SetField(name, value)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.autosave.MarkDirty()
	return nil
}

// AddClient appends a blank client, expanded, and returns it.
func (s *Store) AddClient() model.Client {
	s.mu.Lock()
	c := model.NewClient(s.deps.GenerateID())
	s.clients = append(s.clients, c)
	s.expanded[c.ID] = true
	s.mu.Unlock()
	s.autosave.MarkDirty()
	return c
}

// RemoveClient deletes a client row together with its expansion and error
// state. The last remaining row cannot be removed.
func (s *Store) RemoveClient(id string) error {
	s.mu.Lock()
	if len(s.clients) <= 1 {
		s.mu.Unlock()
		s.deps.Notifier.Notify(notify.Error("Cannot remove", "You must have at least one client in the report"))
		return ErrMinimumClients
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrClientNotFound
	}
	s.clients = append(s.clients[:idx:idx], s.clients[idx+1:]...)
	delete(s.expanded, id)
	delete(s.errors, id)
	s.mu.Unlock()
	s.autosave.MarkDirty()
	return nil
}

// UpdateClientField sets one field of a client. Filling a field that the last
// validation pass flagged clears that flag; Submit still revalidates
// everything.
func (s *Store) UpdateClientField(id, field, value string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrClientNotFound
	}
	if err := s.clients[idx].SetField(field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	if form.Populated(value) && s.errors.Has(id, field) {
		s.errors.Clear(id, field)
	}
	s.mu.Unlock()
	s.autosave.MarkDirty()
	return nil
}

// ToggleClient flips whether a client row is expanded. It is view state only
// and is not saved.
func (s *Store) ToggleClient(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return ErrClientNotFound
	}
	s.expanded[id] = !s.expanded[id]
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, c := range s.clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Completion is the current completion percentage.
func (s *Store) Completion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return form.Completion(s.header, s.clients, ClientSchema)
}

// Clients returns a copy of the client rows in display order.
func (s *Store) Clients() []model.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Client(nil), s.clients...)
}

// Snapshot returns the current state as it would be saved, without stamping
// a new modification time.
func (s *Store) Snapshot() model.ReportSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.lastModified)
}

func (s *Store) snapshotLocked(modified time.Time) model.ReportSnapshot {
	return model.ReportSnapshot{
		ReportHeader: s.header,
		Clients:      append([]model.Client(nil), s.clients...),
		LastModified: modified,
		Identity:     s.deps.Identity,
		UserEmail:    s.deps.Email,
	}
}

// stampLocked returns a modification time strictly after the previous one.
func (s *Store) stampLocked() time.Time {
	now := s.deps.Now().UTC()
	if !now.After(s.lastModified) {
		now = s.lastModified.Add(time.Millisecond)
	}
	s.lastModified = now
	return now
}

// persist is the autosave write: the whole snapshot, stamped at send time.
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	snap := s.snapshotLocked(s.stampLocked())
	s.mu.Unlock()
	if err := gateway.WriteJSON(ctx, s.deps.Gateway, gateway.ReportCollection(s.deps.Identity), gateway.CurrentReportID, snap); err != nil {
		return err
	}
	s.log.Info("report saved", zap.Time("last_modified", snap.LastModified), zap.Int("clients", len(snap.Clients)))
	return nil
}

func (s *Store) onSaveError(err error) {
	s.log.Error("save report failed", zap.Error(err))
	s.deps.Notifier.Notify(notify.Error("Save Failed", "Could not save report. Please try again."))
}

// SaveNow writes the report immediately, superseding a pending autosave.
func (s *Store) SaveNow(ctx context.Context) error {
	queued, err := s.autosave.SaveNow(ctx)
	if err != nil {
		return err
	}
	if !queued {
		s.deps.Notifier.Notify(notify.Info("Report Saved", "Your report has been saved for agent "+s.deps.Identity))
	}
	return nil
}

// Status reports the autosave state.
func (s *Store) Status() autosave.Status {
	return s.autosave.Status()
}

// Close ends the session: the pending autosave is cancelled, an in-flight
// write still completes.
func (s *Store) Close() {
	s.autosave.Close()
}

// Wait blocks until no write is in flight.
func (s *Store) Wait() {
	s.autosave.Wait()
}

// Report is a rendered, validated report.
type Report struct {
	Text        string               `json:"text"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Snapshot    model.ReportSnapshot `json:"snapshot"`
}

// Validate runs the authoritative required-field pass and records the result
// as the session's error state.
func (s *Store) Validate() *ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Store) validateLocked() *ValidationError {
	errs := form.Validate(s.clients, ClientSchema)
	s.errors = errs
	if len(errs) == 0 {
		return nil
	}
	first, _ := form.FirstInvalid(s.clients, errs)
	s.expanded[first] = true
	return &ValidationError{Errors: errs.Clone(), FirstInvalid: first}
}

// Submit validates the report and, when complete, saves and renders it. On
// missing fields nothing is saved or rendered and the *ValidationError lists
// what to fill in. The returned Report holds exactly the state that passed
// validation, whether or not the save reached the gateway.
func (s *Store) Submit(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	verr := s.validateLocked()
	snap := s.snapshotLocked(s.lastModified)
	s.mu.Unlock()
	if verr != nil {
		s.deps.Notifier.Notify(notify.Error("Missing required information", "Please fill out all required fields marked with *"))
		return nil, verr
	}
	if _, err := s.autosave.SaveNow(ctx); err != nil && !errors.Is(err, autosave.ErrClosed) {
		// The save failure is already reported; the report itself still renders.
		s.log.Warn("save before render failed", zap.Error(err))
	}
	now := s.deps.Now()
	out := &Report{Text: RenderText(snap, now), GeneratedAt: now.UTC(), Snapshot: snap}
	s.deps.Notifier.Notify(notify.Info("Report Generated", "Your report has been successfully generated"))
	return out, nil
}
