// Package props implements the build-wide property store.
//
// Properties are resolved once at build start (from static definitions,
// the process environment and conditional bindings), frozen for the rest of
// the run, and discarded at process exit. Call-scoped overlays layer extra
// bindings over the frozen base for the duration of a sub-task call chain.
//
// The executor is single-threaded, so the store needs no locking for
// correctness; the mutex here guards against reentrant calls, which would
// indicate a bug in the caller rather than legitimate concurrency.
package props

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// EnvPropPrefix prefixes property names exported into subprocess
// environments ("build.dir" becomes RIG_PROP_BUILD_DIR).
const EnvPropPrefix = "RIG_PROP_"

// Store holds build-wide properties with first-writer-wins conditional
// binding and call-scoped overlays.
type Store struct {
	mu     sync.Mutex
	base   map[string]string
	scopes []*Scope
	frozen bool
	nextID int
	logger zerolog.Logger
}

// Scope is a call-scoped set of property overrides. Release removes it;
// callers must defer Release on every exit path of the call.
type Scope struct {
	id        int
	overrides map[string]string
}

// New creates an empty property store.
func New(logger zerolog.Logger) *Store {
	return &Store{
		base:   make(map[string]string),
		logger: logger,
	}
}

// Set writes a property unconditionally, overwriting any prior value.
// Fails once the store is frozen.
func (s *Store) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("property name: %w", rigerrors.ErrEmptyValue)
	}
	if !s.mu.TryLock() {
		return rigerrors.ErrReentrantResolve
	}
	defer s.mu.Unlock()

	if s.frozen {
		return fmt.Errorf("set %q: %w", name, rigerrors.ErrPropertyFrozen)
	}
	s.base[name] = value
	return nil
}

// SetIfAbsent writes a property only when it has no value yet
// (first writer wins). Returns true when the write happened.
func (s *Store) SetIfAbsent(name, value string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("property name: %w", rigerrors.ErrEmptyValue)
	}
	if !s.mu.TryLock() {
		return false, rigerrors.ErrReentrantResolve
	}
	defer s.mu.Unlock()

	if s.frozen {
		return false, fmt.Errorf("set %q: %w", name, rigerrors.ErrPropertyFrozen)
	}
	if _, exists := s.base[name]; exists {
		return false, nil
	}
	s.base[name] = value
	return true, nil
}

// SetFromEnv copies the named process environment variable into the store
// if the variable is present and the property is still unset. Returns true
// when the write happened.
func (s *Store) SetFromEnv(name, envKey string) (bool, error) {
	value, present := os.LookupEnv(envKey)
	if !present {
		return false, nil
	}
	return s.SetIfAbsent(name, value)
}

// Get returns the property value, consulting call scopes newest-first
// before the base store.
func (s *Store) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].overrides[name]; ok {
			return v, true
		}
	}
	v, ok := s.base[name]
	return v, ok
}

// Has reports whether the property is set. Guards (`if`/`unless`) use this;
// an absent property reads as false, never as an error.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Freeze ends the resolution phase. The base store is read-only afterward;
// only call-scoped overlays may add bindings.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

// Push layers call-scoped overrides over the store. The returned scope must
// be passed to Release on every exit path of the call chain, including
// failure; callers defer it immediately after Push.
func (s *Store) Push(overrides map[string]string) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	scope := &Scope{id: s.nextID, overrides: overrides}
	s.scopes = append(s.scopes, scope)
	return scope
}

// Release removes the scope from the store. Safe to call more than once.
// Scopes normally release in LIFO order; an out-of-order release is removed
// from wherever it sits and logged, since a leaked scope is worse than an
// unbalanced one.
func (s *Store) Release(scope *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].id != scope.id {
			continue
		}
		if i != len(s.scopes)-1 {
			s.logger.Warn().Int("scope_id", scope.id).Msg("property scope released out of order")
		}
		s.scopes = append(s.scopes[:i], s.scopes[i+1:]...)
		return
	}
}

// Names returns all visible property names, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.base))
	for name := range s.base {
		seen[name] = struct{}{}
	}
	for _, scope := range s.scopes {
		for name := range scope.overrides {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environ returns the store as environment variable assignments for
// subprocess baselines: RIG_PROP_BUILD_DIR=build for property "build.dir".
func (s *Store) Environ() []string {
	names := s.Names()
	env := make([]string, 0, len(names))
	for _, name := range names {
		value, _ := s.Get(name)
		env = append(env, EnvKey(name)+"="+value)
	}
	return env
}

// EnvKey converts a property name to its exported environment variable key.
func EnvKey(name string) string {
	key := strings.NewReplacer(".", "_", "-", "_").Replace(name)
	return EnvPropPrefix + strings.ToUpper(key)
}
