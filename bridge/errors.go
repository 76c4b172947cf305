package bridge

import "errors"

var ErrAnonymous = errors.New("bridge: anonymous connection not supported")
var ErrFilterUnsupported = errors.New("bridge: topic cannot be represented as an asset filter")
var ErrAuthorizationDenied = errors.New("bridge: subscription not authorised")
var ErrPayloadDecode = errors.New("bridge: failed to parse publish payload")
var ErrUnsupportedPublish = errors.New("bridge: topic is not a write topic")
var ErrEventKindMismatch = errors.New("bridge: event kind does not match subscription")
