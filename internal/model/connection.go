package model

import "time"

// ConnectionStatus describes whether a viewer still has access to an agent.
type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "Active"
	ConnectionInactive ConnectionStatus = "Inactive"
)

// Connection links a viewer account to the single agent whose data it may
// see.
type Connection struct {
	ID          string           `json:"id"`
	ViewerEmail string           `json:"viewerEmail"`
	AgentName   string           `json:"agentName"`
	ConnectedAt time.Time        `json:"connectedAt"`
	Status      ConnectionStatus `json:"status"`
}
