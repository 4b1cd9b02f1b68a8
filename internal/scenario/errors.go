package scenario

import "errors"

var (
	ErrUnknownNode     = errors.New("unknown scene node")
	ErrUnsupportedStep = errors.New("step not supported by actor")
	ErrNoDevice        = errors.New("scene has no device")
	ErrAlreadyRan      = errors.New("scene already ran")
)
