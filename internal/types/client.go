package types

// ClientStatus represents the provisioning state of a subscriber
type ClientStatus string

const (
	ClientStatusPending      ClientStatus = "pending"
	ClientStatusActive       ClientStatus = "active"
	ClientStatusSuspended    ClientStatus = "suspended"
	ClientStatusDisconnected ClientStatus = "disconnected"
)

func (s ClientStatus) Validate() bool {
	switch s {
	case ClientStatusPending, ClientStatusActive, ClientStatusSuspended, ClientStatusDisconnected:
		return true
	}
	return false
}

// ClientEvent is a discrete lifecycle event routed through the orchestrator
type ClientEvent string

const (
	ClientEventActivate        ClientEvent = "activate"
	ClientEventSuspend         ClientEvent = "suspend"
	ClientEventPaymentReceived ClientEvent = "payment_received"
)
