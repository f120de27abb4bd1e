// Package schemawrap finds object-schema builder calls (z.object({...}) by
// default) in a syntax tree and wraps each top-level one in a call to a
// memoizing registration function keyed by the call-site location:
//
//	_buildZodSchema("<key>", () => { return z.object({...}); })
package schemawrap

import "fmt"

// Target selects how the registration function is referenced in emitted code.
type Target string

const (
	// TargetBare emits `_buildZodSchema(...)`.
	TargetBare Target = "bare"
	// TargetGlobalMember emits `globalThis._buildZodSchema(...)`.
	TargetGlobalMember Target = "global"
)

// KeyMode selects how a LocationKey is rendered.
type KeyMode string

const (
	// KeyDigest renders the hex SHA-256 of the location tuple.
	KeyDigest KeyMode = "digest"
	// KeyRaw renders the location tuple itself.
	KeyRaw KeyMode = "raw"
)

// Options names the identifiers the pass recognizes and emits.
type Options struct {
	Namespace    string
	Method       string
	Registration string
	Target       Target
	GlobalObject string
	// StrictSelfContainment refuses to wrap definitions that reference
	// anything outside the builder vocabulary.
	StrictSelfContainment bool
	KeyMode               KeyMode
}

// DefaultOptions returns the zod defaults.
func DefaultOptions() Options {
	return Options{
		Namespace:    "z",
		Method:       "object",
		Registration: "_buildZodSchema",
		Target:       TargetBare,
		GlobalObject: "globalThis",
		KeyMode:      KeyDigest,
	}
}

// withDefaults fills empty fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Namespace == "" {
		o.Namespace = d.Namespace
	}
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.Registration == "" {
		o.Registration = d.Registration
	}
	if o.Target == "" {
		o.Target = d.Target
	}
	if o.GlobalObject == "" {
		o.GlobalObject = d.GlobalObject
	}
	if o.KeyMode == "" {
		o.KeyMode = d.KeyMode
	}
	return o
}

// Validate reports options that would produce unusable output.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch o.Target {
	case TargetBare, TargetGlobalMember:
	default:
		return fmt.Errorf("unknown registration target %q", o.Target)
	}
	switch o.KeyMode {
	case KeyDigest, KeyRaw:
	default:
		return fmt.Errorf("unknown key mode %q", o.KeyMode)
	}
	for name, v := range map[string]string{
		"namespace":     o.Namespace,
		"method":        o.Method,
		"registration":  o.Registration,
		"global object": o.GlobalObject,
	} {
		if !isIdentifierName(v) {
			return fmt.Errorf("%s %q is not a valid identifier", name, v)
		}
	}
	return nil
}

func isIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
