package objectmanager

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var (
	ErrObjectExists     = errors.New("object already registered")
	ErrObjectNotFound   = errors.New("object not registered")
	ErrInvalidName      = errors.New("invalid object name")
	ErrNilConstructor   = errors.New("object constructor is nil")
	ErrDependencyCycle  = errors.New("object dependency cycle")
	ErrTypeMismatch     = errors.New("object type mismatch")
	ErrUndeclaredObject = errors.New("object dependency not declared")
)

// Resolver is handed to constructors to fetch their declared dependencies.
type Resolver interface {
	Get(name string) (any, error)
}

// Constructor builds one object instance.
type Constructor func(r Resolver) (any, error)

// Spec declares how an object is built and what it needs first.
//
// Lazy names are declared like dependencies but are not built first. The
// constructor may keep its Resolver and fetch them after construction; that
// later lookup takes the manager lock itself.
type Spec struct {
	Dependencies []string
	Lazy         []string
	New          Constructor
}

// Manager stores object specs by name and caches built instances.
type Manager struct {
	mu       sync.Mutex
	specs    map[string]Spec
	objects  map[string]any
	building map[string]bool
}

func New() *Manager {
	return &Manager{
		specs:    make(map[string]Spec),
		objects:  make(map[string]any),
		building: make(map[string]bool),
	}
}

// Register adds an object spec.
func (m *Manager) Register(name string, spec Spec) error {
	if !isValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if spec.New == nil {
		return fmt.Errorf("%w: %s", ErrNilConstructor, name)
	}
	for _, dep := range spec.declared() {
		if !isValidName(dep) {
			return fmt.Errorf("%w: %s depends on %q", ErrInvalidName, name, dep)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.specs[name]; ok {
		return fmt.Errorf("%w: %s", ErrObjectExists, name)
	}
	spec.Dependencies = append([]string(nil), spec.Dependencies...)
	spec.Lazy = append([]string(nil), spec.Lazy...)
	m.specs[name] = spec
	return nil
}

// MustRegister panics on registration errors; intended for static wiring.
func (m *Manager) MustRegister(name string, spec Spec) {
	if err := m.Register(name, spec); err != nil {
		panic(err)
	}
}

// Set places a prebuilt instance, replacing any cached one.
func (m *Manager) Set(name string, obj any) error {
	if !isValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.specs[name]; !ok {
		m.specs[name] = Spec{New: func(Resolver) (any, error) { return obj, nil }}
	}
	m.objects[name] = obj
	return nil
}

// Get returns the cached instance or builds it with its dependencies.
func (m *Manager) Get(name string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(name, nil)
}

func (m *Manager) getLocked(name string, requester *string) (any, error) {
	if obj, ok := m.objects[name]; ok {
		return obj, nil
	}
	spec, ok := m.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
	}
	if m.building[name] {
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, name)
	}

	m.building[name] = true
	defer delete(m.building, name)

	for _, dep := range spec.Dependencies {
		if _, err := m.getLocked(dep, &name); err != nil {
			return nil, fmt.Errorf("build %s: %w", name, err)
		}
	}

	r := &scopedResolver{m: m, owner: name, allowed: spec.Dependencies, lazy: spec.Lazy}
	r.building.Store(true)
	obj, err := spec.New(r)
	r.building.Store(false)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	m.objects[name] = obj
	ev := log.Debug().Str("object", name)
	if requester != nil {
		ev = ev.Str("requested_by", *requester)
	}
	ev.Msg("object built")
	return obj, nil
}

// scopedResolver only hands out objects the owner declared. While the owner
// is being built the manager lock is already held.
type scopedResolver struct {
	m        *Manager
	owner    string
	allowed  []string
	lazy     []string
	building atomic.Bool
}

func (r *scopedResolver) Get(name string) (any, error) {
	if !contains(r.allowed, name) && !contains(r.lazy, name) {
		return nil, fmt.Errorf("%w: %s requested %s", ErrUndeclaredObject, r.owner, name)
	}
	if r.building.Load() {
		return r.m.getLocked(name, &r.owner)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.getLocked(name, &r.owner)
}

func (s Spec) declared() []string {
	out := make([]string, 0, len(s.Dependencies)+len(s.Lazy))
	out = append(out, s.Dependencies...)
	return append(out, s.Lazy...)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// Typed fetches an object and asserts its type.
func Typed[T any](r Resolver, name string) (T, error) {
	var zero T
	obj, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, name, obj)
	}
	return typed, nil
}

// Discard drops cached instances together with every cached object that
// depends on them. With no names, everything is discarded.
func (m *Manager) Discard(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	targets := map[string]bool{}
	if len(names) == 0 {
		for name := range m.objects {
			targets[name] = true
		}
	} else {
		for _, name := range names {
			targets[name] = true
		}
		for changed := true; changed; {
			changed = false
			for name, spec := range m.specs {
				if targets[name] {
					continue
				}
				for _, dep := range spec.declared() {
					if targets[dep] {
						targets[name] = true
						changed = true
						break
					}
				}
			}
		}
	}

	for _, name := range sortedKeys(targets) {
		obj, ok := m.objects[name]
		if !ok {
			continue
		}
		delete(m.objects, name)
		if closer, ok := obj.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warn().Str("object", name).Err(err).Msg("object close failed")
			}
		}
	}
}

// Close discards every cached object.
func (m *Manager) Close() error {
	m.Discard()
	return nil
}

// Names lists registered objects in deterministic order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.specs))
	for name := range m.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dependencies returns the declared dependencies of name.
func (m *Manager) Dependencies(name string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.specs[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), spec.Dependencies...), true
}

// Declared returns the eager and lazy dependencies of name.
func (m *Manager) Declared(name string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.specs[name]
	if !ok {
		return nil, false
	}
	return spec.declared(), true
}

// Cached reports whether name currently has a built instance.
func (m *Manager) Cached(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[name]
	return ok
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isValidName(name string) bool {
	if strings.TrimSpace(name) != name || name == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(name)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
