package modifier

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedWidth  = errors.New("unsupported field width")
	ErrLengthMismatch    = errors.New("start, step and mask lengths differ")
	ErrDuplicateVariable = errors.New("variable already assigned")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrParentTaken       = errors.New("modifier already has a child")
	ErrChildTaken        = errors.New("modifier already has a parent")
	ErrCycle             = errors.New("link would create a cycle")
)

// ConfigError reports a construction failure for one variable.
type ConfigError struct {
	Key FlowVarIdx
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
