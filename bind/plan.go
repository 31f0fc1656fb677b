// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package bind

import (
	"github.com/creachadair/mds/mapset"
	"github.com/golang/glog"
)

// A plan is the immutable binding table for an object type, computed once
// per descriptor and shared by all bindings of that type.
type plan struct {
	td       *TypeDescriptor
	creators *Creators
	strategy *strategy

	props     map[string]*propRef // by name and alias
	order     []string            // member names in positional order
	ignored   mapset.Set[string]
	unwrapped []*Property
	required  []*propRef
	claims    map[string]claim // external names of unwrapped members
	idProp    string
}

// A propRef is the target of one member name: a creator parameter, a
// property, or both.
type propRef struct {
	param int // index of the properties creator parameter, or -1
	ptype *TypeDescriptor
	prop  *Property
	views mapset.Set[string]
}

func (r *propRef) visible(view string) bool {
	return view == "" || r.views.Len() == 0 || r.views.Has(view)
}

// A claim routes a member of the enclosing object to an unwrapped property.
type claim struct {
	index int    // into plan.unwrapped
	inner string // the member name within the unwrapped value
}

// plan returns the binding plan for td, which must be an object type.
func (b *Binder) plan(td *TypeDescriptor) (*plan, error) {
	res := b.plans.GetOrSet(td, func() planResult {
		pl, err := b.buildPlan(td)
		return planResult{pl: pl, err: err}
	})
	return res.pl, res.err
}

type planResult struct {
	pl  *plan
	err error
}

func (b *Binder) buildPlan(td *TypeDescriptor) (*plan, error) {
	cr, err := b.resolver.Resolve(td)
	if err != nil {
		return nil, err
	}
	pl := &plan{
		td:       td,
		creators: cr,
		strategy: selectStrategy(td),
		props:    make(map[string]*propRef),
		ignored:  mapset.New(td.Ignored...),
	}
	if c := cr.Properties; c != nil && td.Builder == nil {
		for i, p := range c.Params {
			if p.Inject != "" {
				continue
			}
			name := p.name()
			pl.props[name] = &propRef{param: i, ptype: p.Type}
			pl.order = append(pl.order, name)
		}
	}
	for _, prop := range td.Properties {
		if prop.Unwrapped != nil {
			if kindOf(prop.Type) != ObjectKind {
				return nil, configErrorf(td, nil, -1, "unwrapped property %q is not an object type", prop.Name)
			}
			pl.unwrapped = append(pl.unwrapped, prop)
			continue
		}
		ref, ok := pl.props[prop.Name]
		if !ok {
			ref = &propRef{param: -1, ptype: prop.Type}
			pl.props[prop.Name] = ref
			pl.order = append(pl.order, prop.Name)
		}
		ref.prop = prop
		ref.views = mapset.New(prop.Views...)
		if prop.Required {
			pl.required = append(pl.required, ref)
		}
		for _, alias := range prop.Aliases {
			if _, ok := pl.props[alias]; !ok {
				pl.props[alias] = ref
			}
		}
	}
	if len(pl.unwrapped) != 0 {
		pl.claims = make(map[string]claim)
		for i, prop := range pl.unwrapped {
			sub, err := b.plan(prop.Type)
			if err != nil {
				return nil, err
			}
			for _, inner := range sub.names() {
				ext := prop.Unwrapped.External(inner)
				if _, ok := pl.props[ext]; ok {
					continue // direct properties take precedence
				}
				if _, ok := pl.claims[ext]; !ok {
					pl.claims[ext] = claim{index: i, inner: inner}
				}
			}
		}
	}
	if s := td.Subtypes; s != nil && s.Property == "" {
		return nil, configErrorf(td, nil, -1, "polymorphic type has no type id property")
	}
	if td.ObjectID != nil {
		pl.idProp = td.ObjectID.Property
	}
	if glog.V(2) {
		glog.Infof("bind: plan for %s: %s strategy, %s creator, %d names", td, pl.strategy.name, cr.Primary(), len(pl.props))
	}
	return pl, nil
}

// names returns all the member names accepted by pl, including those claimed
// by unwrapped properties.
func (pl *plan) names() []string {
	out := make([]string, 0, len(pl.props)+len(pl.claims))
	for name := range pl.props {
		out = append(out, name)
	}
	for name := range pl.claims {
		out = append(out, name)
	}
	return out
}
