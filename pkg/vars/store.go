package vars

import "sort"

// Reader is the read side of a variable store, used by condition evaluation.
type Reader interface {
	Get(name string) (Value, bool)
}

// Store is a flat mapping of variable name to value. Names are unique and
// the last write wins. Reading an undefined name is distinct from reading a
// falsy value.
type Store map[string]Value

var _ Reader = Store(nil)

func NewStore() Store {
	return make(Store)
}

// Get returns the value for name and whether it is defined.
func (s Store) Get(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s[name]
	return v, ok
}

// Set overwrites a single variable. Invalid values are ignored.
func (s Store) Set(name string, v Value) {
	if !v.IsValid() {
		return
	}
	s[name] = v
}

// SetAll applies bulk writes in order, so later entries win.
func (s Store) SetAll(values map[string]Value) {
	for name, v := range values {
		s.Set(name, v)
	}
}

func (s Store) Clone() Store {
	out := make(Store, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Names returns the defined variable names in sorted order.
func (s Store) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
