package config

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrUnknownFormat   = errors.New("unknown configuration format")
)
