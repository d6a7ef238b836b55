// Package report is the agent daily-report form: the in-memory state of one
// editing session, its hydration from and autosave to the document gateway,
// and the rendering of the finished report.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dharsanguruparan/AgentDesk/internal/form"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

// ClientSchema declares which client fields block submission.
var ClientSchema = form.Schema{Fields: []form.FieldSpec{
	{Name: model.FieldShopID, Label: "Shop ID"},
	{Name: model.FieldClientDetails, Label: "Client Details"},
	{Name: model.FieldAssets, Label: "Assets"},
	{Name: model.FieldConversationSummary, Label: "Conversation Summary", Required: true},
	{Name: model.FieldPlanForTomorrow, Label: "Plan for Tomorrow", Required: true},
}}

var (
	// ErrMinimumClients rejects removing the last client row.
	ErrMinimumClients = errors.New("a report must keep at least one client")
	// ErrClientNotFound is returned for an unknown client id.
	ErrClientNotFound = errors.New("client not found")
)

// ValidationError is returned by Submit when required fields are empty.
// FirstInvalid is the client the user should be taken to.
type ValidationError struct {
	Errors       form.ValidationErrors `json:"errors"`
	FirstInvalid string                `json:"firstInvalid"`
}

func (e *ValidationError) Error() string {
	ids := make([]string, 0, len(e.Errors))
	for id := range e.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %s", id, strings.Join(e.Errors[id], ", ")))
	}
	return "missing required information (" + strings.Join(parts, "; ") + ")"
}
