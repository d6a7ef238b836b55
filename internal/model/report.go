// Package model contains the document shapes shared by the report engine, the
// gateway backends and the HTTP API. Struct tags keep the persisted JSON in the
// camelCase layout the dashboard has always written.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownField is returned when a field name is not part of the record.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidValue is returned when a numeric header field cannot be parsed.
	ErrInvalidValue = errors.New("invalid field value")
)

// Client field names as they appear in the persisted document and in
// validation error lists.
const (
	FieldShopID              = "shopId"
	FieldClientDetails       = "clientDetails"
	FieldAssets              = "assets"
	FieldConversationSummary = "conversationSummary"
	FieldPlanForTomorrow     = "planForTomorrow"
)

// Header field names.
const (
	FieldAgentName    = "agentName"
	FieldAddedToday   = "addedToday"
	FieldMonthlyAdded = "monthlyAdded"
	FieldOpenShops    = "openShops"
	FieldDeposits     = "deposits"
)

// HeaderFields lists the header fields in display order.
var HeaderFields = []string{FieldAgentName, FieldAddedToday, FieldMonthlyAdded, FieldOpenShops, FieldDeposits}

// Client is one row of the daily report. ID is generated when the row is
// created and never changes.
type Client struct {
	ID                  string `json:"id"`
	ShopID              string `json:"shopId"`
	ClientDetails       string `json:"clientDetails"`
	Assets              string `json:"assets"`
	ConversationSummary string `json:"conversationSummary"`
	PlanForTomorrow     string `json:"planForTomorrow"`
}

// NewClient returns a blank client row with the given id.
func NewClient(id string) Client {
	return Client{ID: id}
}

// RecordID returns the row identifier.
func (c Client) RecordID() string { return c.ID }

// Field returns the value of a named field, or "" for unknown names.
func (c Client) Field(name string) string {
	switch name {
	case FieldShopID:
		return c.ShopID
	case FieldClientDetails:
		return c.ClientDetails
	case FieldAssets:
		return c.Assets
	case FieldConversationSummary:
		return c.ConversationSummary
	case FieldPlanForTomorrow:
		return c.PlanForTomorrow
	}
	return ""
}

// SetField assigns a named field.
func (c *Client) SetField(name, value string) error {
	switch name {
	case FieldShopID:
		c.ShopID = value
	case FieldClientDetails:
		c.ClientDetails = value
	case FieldAssets:
		c.Assets = value
	case FieldConversationSummary:
		c.ConversationSummary = value
	case FieldPlanForTomorrow:
		c.PlanForTomorrow = value
	default:
		return fmt.Errorf("client %q: %w", name, ErrUnknownField)
	}
	return nil
}

// ReportHeader is the one-per-agent part of the report.
type ReportHeader struct {
	AgentName    string  `json:"agentName"`
	AddedToday   int     `json:"addedToday"`
	MonthlyAdded int     `json:"monthlyAdded"`
	OpenShops    int     `json:"openShops"`
	Deposits     float64 `json:"deposits"`
}

// CountedFields is the number of header fields that take part in the
// completion metric.
func (h ReportHeader) CountedFields() int { return len(HeaderFields) }

// PopulatedFields counts the header fields holding a value. Zero counts as
// empty for the numeric fields.
func (h ReportHeader) PopulatedFields() int {
	n := 0
	if strings.TrimSpace(h.AgentName) != "" {
		n++
	}
	for _, v := range []float64{float64(h.AddedToday), float64(h.MonthlyAdded), float64(h.OpenShops), h.Deposits} {
		if v != 0 {
			n++
		}
	}
	return n
}

// SetField parses value into the named header field. An empty value clears a
// numeric field back to zero.
func (h *ReportHeader) SetField(name, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case FieldAgentName:
		h.AgentName = value
		return nil
	case FieldDeposits:
		if value == "" {
			h.Deposits = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimPrefix(value, "$"), 64)
		if err != nil {
			return fmt.Errorf("header %q: %w", name, ErrInvalidValue)
		}
		h.Deposits = f
		return nil
	}
	var target *int
	switch name {
	case FieldAddedToday:
		target = &h.AddedToday
	case FieldMonthlyAdded:
		target = &h.MonthlyAdded
	case FieldOpenShops:
		target = &h.OpenShops
	default:
		return fmt.Errorf("header %q: %w", name, ErrUnknownField)
	}
	if value == "" {
		*target = 0
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("header %q: %w", name, ErrInvalidValue)
	}
	*target = n
	return nil
}

// ReportSnapshot is the document stored for one identity. It is always
// written whole.
type ReportSnapshot struct {
	ReportHeader
	Clients      []Client  `json:"clients"`
	LastModified time.Time `json:"lastModified"`
	Identity     string    `json:"identity"`
	UserEmail    string    `json:"userEmail,omitempty"`
}

// RosterEntry is the team roster's view of an agent, used to seed the counts
// of a first-time report.
type RosterEntry struct {
	Name          string  `json:"name" yaml:"name"`
	AddedToday    int     `json:"addedToday" yaml:"addedToday"`
	MonthlyAdded  int     `json:"monthlyAdded" yaml:"monthlyAdded"`
	OpenAccounts  int     `json:"openAccounts" yaml:"openAccounts"`
	TotalDeposits float64 `json:"totalDeposits" yaml:"totalDeposits"`
}
