package eventstream

import "errors"

// ErrNilCommitEvent indicates a nil commit event payload was provided to a publisher.
var ErrNilCommitEvent = errors.New("nil commit event")
