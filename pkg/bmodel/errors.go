package bmodel

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid BModel magic")
	ErrUnsupportedMajor = errors.New("unsupported BModel major version")
	ErrCorruptFile      = errors.New("corrupt BModel file")
)
