package provisioning

import (
	"context"
)

// Service is the network provisioning collaborator. Activation provisions
// network access for a client whose installation invoice was paid;
// monitoring toggles follow lifecycle events. Failures are surfaced to the
// caller and never fatal to a tick.
type Service interface {
	// ActivateClient provisions network access and starts monitoring
	ActivateClient(ctx context.Context, clientID string) error

	// SuspendClient revokes network access
	SuspendClient(ctx context.Context, clientID string) error

	// EnableMonitoring starts network/wallet monitoring for the client
	EnableMonitoring(ctx context.Context, clientID string) error

	// DisableMonitoring stops monitoring for the client
	DisableMonitoring(ctx context.Context, clientID string) error
}
