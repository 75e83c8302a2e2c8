// Package idgen produces opaque record identifiers. Callers must treat the
// result as an opaque string.
package idgen

import "github.com/google/uuid"

// NewFunc returns a new random (v4) UUID string. Tests may replace it.
var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }
