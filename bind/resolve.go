// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"github.com/creachadair/jbind/internal/lru"
	"github.com/golang/glog"
)

// A CreatorKind identifies a construction strategy.
type CreatorKind byte

const (
	NoCreator         CreatorKind = iota
	DefaultCreator                // no arguments, properties assigned afterward
	ScalarCreator                 // one scalar argument, for scalar input
	DelegatingCreator             // one argument bound to the whole value
	PropertiesCreator             // each argument bound to a named member
)

var creatorKindStr = [...]string{
	NoCreator:         "none",
	DefaultCreator:    "default",
	ScalarCreator:     "scalar",
	DelegatingCreator: "delegating",
	PropertiesCreator: "properties",
}

func (k CreatorKind) String() string {
	if int(k) < len(creatorKindStr) {
		return creatorKindStr[k]
	}
	return "invalid"
}

// Creators records the construction strategies resolved for a type.
// At most one creator is chosen for each strategy.
type Creators struct {
	Default func() (any, error)

	// Scalar creators, used when the input for an object type is a string,
	// number, or Boolean.
	String, Int, Float, Bool *Creator

	Delegating *Creator
	Properties *Creator
}

// Primary reports the strategy used to construct a value from object input.
func (c *Creators) Primary() CreatorKind {
	switch {
	case c.Properties != nil:
		return PropertiesCreator
	case c.Delegating != nil:
		return DelegatingCreator
	case c.Default != nil:
		return DefaultCreator
	case c.String != nil || c.Int != nil || c.Float != nil || c.Bool != nil:
		return ScalarCreator
	}
	return NoCreator
}

// creator classes, one winner each
const (
	classDefault = iota
	classString
	classInt
	classFloat
	classBool
	classDelegating
	classProperties
	numClasses
)

func scalarClass(td *TypeDescriptor) (int, bool) {
	switch kindOf(td) {
	case StringKind:
		return classString, true
	case IntKind, Int64Kind:
		return classInt, true
	case FloatKind:
		return classFloat, true
	case BoolKind:
		return classBool, true
	}
	return 0, false
}

// Resolve selects the creators for td without caching. Use a Resolver to
// avoid repeating the work for the same descriptor.
//
// Creators marked Explicit are authoritative: each is assigned a strategy by
// its Mode, and a parameter that is neither named nor injected is an error.
// Implicit creators are classified by their parameters: a single parameter
// that is explicitly named or injected is a properties creator, a single
// scalar parameter a scalar creator, and any other single parameter a
// delegating creator. An implicit creator with several parameters is
// eligible as a properties creator only if every parameter is named or
// injected and at least one is explicitly named or injected; one that mixes
// explicit and missing names is an error. Implicit multi-parameter creators
// are not considered when an explicit properties creator exists, and if
// more than one is eligible none is chosen.
//
// An explicit creator takes precedence over implicit ones for the same
// strategy. Two explicit creators, or two implicit creators, competing for
// the same strategy is an error.
func Resolve(td *TypeDescriptor) (*Creators, error) {
	out := new(Creators)
	if td.Kind != ObjectKind {
		return out, nil
	}
	var explicit [numClasses]*Creator
	var implicit [numClasses][]*Creator
	var multi []*Creator

	for _, c := range td.Creators {
		if c.Invoke == nil {
			return nil, configErrorf(td, c, -1, "creator has no Invoke function")
		}
		if c.Explicit {
			cls, err := explicitClass(td, c)
			if err != nil {
				return nil, err
			}
			if prev := explicit[cls]; prev != nil {
				return nil, configErrorf(td, c, -1, "conflicts with explicit creator %s", prev)
			}
			explicit[cls] = c
			continue
		}
		switch len(c.Params) {
		case 0:
			implicit[classDefault] = append(implicit[classDefault], c)
		case 1:
			p := c.Params[0]
			if p.explicit() {
				implicit[classProperties] = append(implicit[classProperties], c)
			} else if cls, ok := scalarClass(p.Type); ok {
				implicit[cls] = append(implicit[cls], c)
			} else {
				implicit[classDelegating] = append(implicit[classDelegating], c)
			}
		default:
			multi = append(multi, c)
		}
	}

	if explicit[classProperties] == nil {
		var eligible []*Creator
		for _, c := range multi {
			ok, err := multiEligible(td, c)
			if err != nil {
				return nil, err
			} else if ok {
				eligible = append(eligible, c)
			}
		}
		if len(eligible) == 1 {
			implicit[classProperties] = append(implicit[classProperties], eligible[0])
		} else if len(eligible) > 1 && glog.V(1) {
			glog.Infof("bind: type %s has %d eligible implicit creators; none chosen", td, len(eligible))
		}
	}

	var win [numClasses]*Creator
	for cls := range numClasses {
		if c := explicit[cls]; c != nil {
			win[cls] = c
		} else if cs := implicit[cls]; len(cs) == 1 {
			win[cls] = cs[0]
		} else if len(cs) > 1 {
			return nil, configErrorf(td, cs[1], -1, "conflicts with implicit creator %s", cs[0])
		}
	}
	if c := win[classProperties]; c != nil {
		if err := checkParamNames(td, c); err != nil {
			return nil, err
		}
	}

	switch {
	case explicit[classDefault] != nil:
		out.Default = invoker(explicit[classDefault])
	case td.New != nil:
		out.Default = td.New
	case win[classDefault] != nil:
		out.Default = invoker(win[classDefault])
	}
	out.String = win[classString]
	out.Int = win[classInt]
	out.Float = win[classFloat]
	out.Bool = win[classBool]
	out.Delegating = win[classDelegating]
	out.Properties = win[classProperties]

	if b := td.Builder; b != nil {
		if b.New == nil || b.Build == nil {
			return nil, configErrorf(td, nil, -1, "builder requires New and Build functions")
		}
	} else if out.Primary() == NoCreator && td.Subtypes == nil {
		return nil, configErrorf(td, nil, -1, "no usable creator")
	}
	return out, nil
}

// explicitClass reports the strategy for an explicit creator.
func explicitClass(td *TypeDescriptor, c *Creator) (int, error) {
	if len(c.Params) == 0 {
		return classDefault, nil
	}
	switch c.Mode {
	case DelegatingMode:
		if len(c.Params) != 1 {
			return 0, configErrorf(td, c, -1, "delegating creator must have exactly one parameter")
		}
		return classDelegating, nil
	case PropertiesMode:
		return classProperties, checkNamed(td, c)
	}
	if len(c.Params) == 1 {
		if c.Params[0].explicit() {
			return classProperties, nil
		}
		return classDelegating, nil
	}
	return classProperties, checkNamed(td, c)
}

func checkNamed(td *TypeDescriptor, c *Creator) error {
	for i, p := range c.Params {
		if !p.named() {
			return configErrorf(td, c, i, "parameter has no name and is not injected")
		}
	}
	return nil
}

// multiEligible reports whether an implicit creator with several parameters
// may be used as a properties creator.
func multiEligible(td *TypeDescriptor, c *Creator) (bool, error) {
	explicit, unnamed := 0, -1
	for i, p := range c.Params {
		if p.explicit() {
			explicit++
		} else if p.ImplicitName == "" && unnamed < 0 {
			unnamed = i
		}
	}
	if explicit == 0 {
		return false, nil
	} else if unnamed >= 0 {
		return false, configErrorf(td, c, unnamed, "parameter has no name and is not injected")
	}
	return true, nil
}

func checkParamNames(td *TypeDescriptor, c *Creator) error {
	seen := make(map[string]bool)
	for i, p := range c.Params {
		if p.Inject != "" {
			continue
		}
		name := p.name()
		if seen[name] {
			return configErrorf(td, c, i, "duplicate parameter name %q", name)
		}
		seen[name] = true
	}
	return nil
}

func invoker(c *Creator) func() (any, error) {
	return func() (any, error) { return c.Invoke(nil) }
}

// A Resolver caches the creators resolved for type descriptors, including
// failures. A Resolver is safe for concurrent use.
type Resolver struct {
	cache *lru.Cache[*TypeDescriptor, resolution]
}

type resolution struct {
	c   *Creators
	err error
}

// NewResolver constructs a Resolver that caches the results for up to
// capacity descriptors. If capacity <= 0, a default is used.
func NewResolver(capacity int) *Resolver {
	return &Resolver{cache: lru.New[*TypeDescriptor, resolution](capacity)}
}

// Resolve returns the creators for td, as [Resolve].
func (r *Resolver) Resolve(td *TypeDescriptor) (*Creators, error) {
	res := r.cache.GetOrSet(td, func() resolution {
		c, err := Resolve(td)
		return resolution{c: c, err: err}
	})
	return res.c, res.err
}
