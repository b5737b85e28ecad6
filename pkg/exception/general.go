package exception

import "errors"

// General errors
var (
	ErrBuffTooSmall = errors.New("encode buff is too small")
)
