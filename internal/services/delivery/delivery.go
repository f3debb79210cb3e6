// Package delivery sends the formatted report over the email and chat
// webhook channels. Channels are independent: a failure in one never
// prevents the other from attempting delivery.
package delivery

import (
	"fmt"
	"time"
)

// Channel names used in logs and errors.
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// defaultTimeout bounds each delivery HTTP call.
const defaultTimeout = 30 * time.Second

// DeliveryError indicates a channel failed to deliver the report.
// It is logged and the run continues; only when every channel fails does
// the run exit non-zero.
type DeliveryError struct {
	Channel    string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s delivery failed (status %d): %v", e.Channel, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
