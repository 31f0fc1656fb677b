// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import "github.com/creachadair/jbind"

// An Option configures a Binder.
type Option interface{ apply(*Binder) }

type optionFn func(*Binder)

func (o optionFn) apply(b *Binder) { o(b) }

// WithIgnoreUnknown configures whether members with no home in the target
// type are discarded (true) or reported as errors (false, the default).
func WithIgnoreUnknown(ok bool) Option {
	return optionFn(func(b *Binder) { b.ignoreUnknown = ok })
}

// WithView selects the active view. Properties not visible in the view are
// skipped. The default is no view, in which every property is visible.
func WithView(name string) Option {
	return optionFn(func(b *Binder) { b.view = name })
}

// WithExactNumbers configures untyped values to represent numbers exactly:
// every Float becomes a *big.Rat. By default floats are float64, and
// integers are int64 unless out of range.
func WithExactNumbers(ok bool) Option {
	return optionFn(func(b *Binder) { b.exact = ok })
}

// WithCompactArrays configures decoded slices to have no spare capacity.
func WithCompactArrays(ok bool) Option {
	return optionFn(func(b *Binder) { b.compact = ok })
}

// WithAcceptSingleValueAsArray configures a non-array value where a slice
// is expected to be treated as a slice of one element.
func WithAcceptSingleValueAsArray(ok bool) Option {
	return optionFn(func(b *Binder) { b.single = ok })
}

// WithLenientProperties configures unknown members and failed property
// assignments to be skipped instead of reported.
func WithLenientProperties(ok bool) Option {
	return optionFn(func(b *Binder) { b.lenient = ok })
}

// WithInjectable supplies the value for creator parameters whose Inject id
// is id.
func WithInjectable(id string, value any) Option {
	return optionFn(func(b *Binder) {
		if b.inject == nil {
			b.inject = make(map[string]any)
		}
		b.inject[id] = value
	})
}

// WithTokenizerOptions sets the options used by Unmarshal and Decode to
// construct a tokenizer.
func WithTokenizerOptions(opts *jbind.Options) Option {
	return optionFn(func(b *Binder) { b.topts = opts })
}

// WithResolver sets the creator resolver used by the binder, allowing
// several binders to share its cache.
func WithResolver(r *Resolver) Option {
	return optionFn(func(b *Binder) { b.resolver = r })
}
