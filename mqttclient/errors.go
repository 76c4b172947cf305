package mqttclient

import "errors"

var (
	ErrConnectionFailed    = errors.New("mqttclient: connection failed")
	ErrSubscribeFailed     = errors.New("mqttclient: subscribe failed")
	ErrSubscriptionRefused = errors.New("mqttclient: subscription refused by broker")
	ErrPublishFailed       = errors.New("mqttclient: publish failed")
	ErrInvalidQoS          = errors.New("mqttclient: invalid QoS level (must be 0, 1, or 2)")
	ErrTimeout             = errors.New("mqttclient: operation timed out")
)
