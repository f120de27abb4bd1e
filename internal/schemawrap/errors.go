package schemawrap

import "errors"

// ErrSyntax marks a source the parser could only partially recover.
var ErrSyntax = errors.New("source has syntax errors")
