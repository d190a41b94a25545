package broadcast

import "errors"

var ErrClosed = errors.New("broadcaster is closed")
