package watch

import "errors"

var (
	ErrNotFound        = errors.New("watch not found")
	ErrUnknownKind     = errors.New("unknown watch kind")
	ErrInvalidWatch    = errors.New("invalid watch")
	ErrUnresolved      = errors.New("account unresolved")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
