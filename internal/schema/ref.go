package schema

import "sync/atomic"

// Ref holds a Validator behind an atomic pointer so that a schema hot-reload
// can swap in a newly compiled Validator without a lock on the hot read
// path. New connections observe the latest value; a handler already in
// flight keeps whatever Validator it loaded when it started.
type Ref struct {
	p atomic.Pointer[Validator]
}

// NewRef wraps an initial Validator in a Ref.
func NewRef(v *Validator) *Ref {
	r := &Ref{}
	r.p.Store(v)
	return r
}

// Load returns the current Validator.
func (r *Ref) Load() *Validator {
	return r.p.Load()
}

// Store atomically swaps in a newly compiled Validator.
func (r *Ref) Store(v *Validator) {
	r.p.Store(v)
}
