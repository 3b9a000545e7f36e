// Package realtime adapts the real-time transport used to fan incident
// state out to status page viewers. Delivery guarantees (at-least-once, no
// cross-channel ordering) belong to the broker; this package only attempts
// a single bounded publish per call.
package realtime

import (
	"context"
	"fmt"
)

// Publisher delivers a named event with a payload to all subscribers of a
// named channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload interface{}) error
}

// OrgChannel returns the per-organization channel name. One logical channel
// per organization keeps tenants from observing each other's events.
func OrgChannel(organizationID string) string {
	return fmt.Sprintf("org-%s", organizationID)
}
