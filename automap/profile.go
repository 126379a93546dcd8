// Package automap maps values between struct types from a fluent,
// per-profile configuration.
//
// Basic usage:
//
//	p := automap.NewProfile()
//	automap.CreateMap[store.Order, dto.Order](p).
//		ForMember("Total", automap.MapFrom(func(o store.Order) int64 { return o.TotalCents })).
//		ForMember(func(d *dto.Order) any { return &d.Audit }, automap.Ignore()).
//		ReverseMap()
//
//	order, err := automap.Map[dto.Order](p, src)
package automap

import (
	"fmt"
	"reflect"
	"sync"
)

// Profile holds a set of type maps.
type Profile struct {
	mu    sync.RWMutex
	maps  map[pairKey]*typeMap
	order []pairKey
}

// pairKey uniquely identifies a source-destination type pair.
type pairKey struct {
	src, dst reflect.Type
}

type typeMap struct {
	src, dst reflect.Type
	members  map[string]MemberOption // by destination field name
	maxDepth int
	errs     []error
}

// NewProfile returns an empty profile.
func NewProfile() *Profile {
	return &Profile{maps: map[pairKey]*typeMap{}}
}

// TypeMap configures the mapping from S to D.
type TypeMap[S, D any] struct {
	p  *Profile
	tm *typeMap
}

// CreateMap registers a mapping from S to D. Registering the same pair again
// replaces the earlier configuration.
func CreateMap[S, D any](p *Profile) *TypeMap[S, D] {
	return &TypeMap[S, D]{p: p, tm: p.register(reflect.TypeFor[S](), reflect.TypeFor[D]())}
}

// ForMember overrides how the destination member is populated. member is
// either the field name or a selector such as
// func(d *D) any { return &d.Field }.
func (m *TypeMap[S, D]) ForMember(member any, opt MemberOption) *TypeMap[S, D] {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()

	field, err := selectMember[D](member)
	if err != nil {
		m.tm.errs = append(m.tm.errs, err)

		return m
	}

	if err := opt.bind(m.tm.src, field); err != nil {
		m.tm.errs = append(m.tm.errs, err)

		return m
	}

	m.tm.members[field.Name] = opt

	return m
}

// ReverseMap registers the mapping from D back to S and returns it for
// further configuration.
func (m *TypeMap[S, D]) ReverseMap() *TypeMap[D, S] {
	return &TypeMap[D, S]{p: m.p, tm: m.p.register(m.tm.dst, m.tm.src)}
}

// MaxDepth bounds how many nested levels of this mapping are populated.
// Deeper levels receive zero values. Zero means unbounded.
func (m *TypeMap[S, D]) MaxDepth(depth int) *TypeMap[S, D] {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()

	m.tm.maxDepth = depth

	return m
}

func (p *Profile) register(src, dst reflect.Type) *typeMap {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := pairKey{src, dst}
	if _, exists := p.maps[key]; !exists {
		p.order = append(p.order, key)
	}

	tm := &typeMap{src: src, dst: dst, members: map[string]MemberOption{}}
	p.maps[key] = tm

	return tm
}

func (p *Profile) lookup(src, dst reflect.Type) (*typeMap, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tm, ok := p.maps[pairKey{src, dst}]

	return tm, ok
}

// Pairs returns the registered (source, destination) pairs in registration
// order.
func (p *Profile) Pairs() [][2]reflect.Type {
	p.mu.RLock()
	defer p.mu.RUnlock()

	res := make([][2]reflect.Type, 0, len(p.order))
	for _, key := range p.order {
		res = append(res, [2]reflect.Type{key.src, key.dst})
	}

	return res
}

func selectMember[D any](member any) (reflect.StructField, error) {
	dst := reflect.TypeFor[D]()
	if dst.Kind() != reflect.Struct {
		return reflect.StructField{}, fmt.Errorf("%w: %s is not a struct", ErrUnknownMember, dst)
	}

	switch sel := member.(type) {
	case string:
		field, ok := dst.FieldByName(sel)
		if !ok || !field.IsExported() {
			return reflect.StructField{}, fmt.Errorf("%w: %s.%s", ErrUnknownMember, dst, sel)
		}

		return field, nil

	case func(*D) any:
		var d D
		base := reflect.ValueOf(&d).Elem()

		ptr := reflect.ValueOf(sel(&d))
		if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return reflect.StructField{}, fmt.Errorf("%w: selector must return the address of a field of %s", ErrUnknownMember, dst)
		}

		for _, field := range reflect.VisibleFields(dst) {
			if !field.IsExported() || field.Type != ptr.Type().Elem() {
				continue
			}

			value, err := base.FieldByIndexErr(field.Index)
			if err != nil {
				continue
			}

			if value.Addr().Pointer() == ptr.Pointer() {
				return field, nil
			}
		}

		return reflect.StructField{}, fmt.Errorf("%w: selector does not address an exported field of %s", ErrUnknownMember, dst)

	default:
		return reflect.StructField{}, fmt.Errorf("%w: member must be a field name or a selector, got %T", ErrUnknownMember, member)
	}
}
