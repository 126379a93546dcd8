package automap

import "errors"

var (
	ErrMissingMap      = errors.New("no mapping registered for type pair")
	ErrUnknownMember   = errors.New("unknown destination member")
	ErrUnknownSource   = errors.New("unknown source member")
	ErrSourceType      = errors.New("option source type does not match the mapping source")
	ErrUnsupported     = errors.New("unsupported conversion")
	ErrNotConverter    = errors.New("value is not a recognizable converter")
	ErrDoublePointer   = errors.New("converter does not support double pointers")
	ErrConverterFailed = errors.New("converter rejected the value")
)
