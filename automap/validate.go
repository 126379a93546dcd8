package automap

import (
	"errors"
	"fmt"
	"reflect"
)

// Validate checks every registered mapping and every nested mapping it
// requires. It reports configuration errors recorded by ForMember and type
// pairs that would fail with ErrMissingMap at runtime.
func (p *Profile) Validate() error {
	var (
		d    dealer
		errs []error
	)

	for _, pair := range p.Pairs() {
		d.Needs(pair[0], pair[1])
	}

	for {
		src, dst, ok := d.NextNeeds()
		if !ok {
			break
		}

		tm, ok := p.lookup(src, dst)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrMissingMap, src, dst))

			continue
		}

		errs = append(errs, tm.errs...)

		for _, field := range reflect.VisibleFields(dst) {
			if !field.IsExported() || field.Anonymous {
				continue
			}

			if _, overridden := tm.members[field.Name]; overridden {
				continue
			}

			sf, ok := findField(src, field.Name)
			if !ok {
				continue
			}

			if nestedSrc, nestedDst, ok := nestedPair(sf.Type, field.Type); ok {
				d.Needs(nestedSrc, nestedDst)
			}
		}
	}

	return errors.Join(errs...)
}

// nestedPair unwraps pointers and containers on both sides and reports the
// struct pair that needs its own mapping, if any.
func nestedPair(src, dst reflect.Type) (reflect.Type, reflect.Type, bool) {
	for {
		switch {
		case src.AssignableTo(dst):
			return nil, nil, false
		case src.Kind() == reflect.Pointer:
			src = src.Elem()
		case dst.Kind() == reflect.Pointer:
			dst = dst.Elem()
		case isSequence(src) && isSequence(dst),
			src.Kind() == reflect.Map && dst.Kind() == reflect.Map:
			src, dst = src.Elem(), dst.Elem()
		case src.Kind() == reflect.Struct && dst.Kind() == reflect.Struct:
			return src, dst, true
		default:
			return nil, nil, false
		}
	}
}

type structPair struct{ src, dst reflect.Type }

// dealer hands out type pairs that still need to be checked, each once.
type dealer struct {
	needs map[structPair]struct{}
	done  map[structPair]struct{}
	queue []structPair
}

func (d *dealer) NextNeeds() (src, dst reflect.Type, ok bool) {
	for len(d.queue) > 0 {
		pair := d.queue[0]
		d.queue = d.queue[1:]

		if _, pending := d.needs[pair]; !pending {
			continue
		}

		d.Done(pair.src, pair.dst)

		return pair.src, pair.dst, true
	}

	return nil, nil, false
}

func (d *dealer) Needs(src, dst reflect.Type) {
	if d.needs == nil {
		d.needs = make(map[structPair]struct{})
	}

	pair := structPair{src: src, dst: dst}
	if _, exists := d.done[pair]; exists {
		return
	}

	if _, exists := d.needs[pair]; !exists {
		d.needs[pair] = struct{}{}
		d.queue = append(d.queue, pair)
	}
}

func (d *dealer) Done(src, dst reflect.Type) {
	if d.done == nil {
		d.done = make(map[structPair]struct{})
	}

	pair := structPair{src: src, dst: dst}
	delete(d.needs, pair)
	d.done[pair] = struct{}{}
}
