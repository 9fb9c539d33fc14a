// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package lucia

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

const ErrInvalidRegistration = ConstError("invalid registration")

// InterpreterFactory creates an interpreter from an implementation-defined
// configuration; nil selects the default configuration.
type InterpreterFactory func(config any) (Interpreter, error)

// ProcessorFactory creates a processor running call frames on the given
// interpreter.
type ProcessorFactory func(interpreter Interpreter) Processor

var (
	interpreters = newRegistry[InterpreterFactory]("interpreter")
	processors   = newRegistry[ProcessorFactory]("processor")
)

// registry maps case-insensitive names to factories of one kind.
type registry[F any] struct {
	kind      string
	lock      sync.Mutex
	factories map[string]F
}

func newRegistry[F any](kind string) *registry[F] {
	return &registry[F]{kind: kind, factories: map[string]F{}}
}

// add registers a factory; isNil reports whether the factory is missing,
// which can not be checked on the type parameter itself.
func (r *registry[F]) add(name string, factory F, isNil bool) error {
	key := strings.ToLower(name)
	if isNil {
		return fmt.Errorf("%w: nil %s factory for `%s`", ErrInvalidRegistration, r.kind, key)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, found := r.factories[key]; found {
		return fmt.Errorf("%w: multiple %s factories registered for `%s`", ErrInvalidRegistration, r.kind, key)
	}
	r.factories[key] = factory
	return nil
}

func (r *registry[F]) get(name string) (F, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	factory, found := r.factories[strings.ToLower(name)]
	return factory, found
}

func (r *registry[F]) all() map[string]F {
	r.lock.Lock()
	defer r.lock.Unlock()
	return maps.Clone(r.factories)
}

// RegisterInterpreterFactory makes a factory available under the given
// case-insensitive name. Names can only be registered once.
func RegisterInterpreterFactory(name string, factory InterpreterFactory) error {
	return interpreters.add(name, factory, factory == nil)
}

// MustRegisterInterpreterFactory is like RegisterInterpreterFactory but
// panics on failure. It is intended for init functions.
func MustRegisterInterpreterFactory(name string, factory InterpreterFactory) {
	if err := RegisterInterpreterFactory(name, factory); err != nil {
		panic(err)
	}
}

func GetInterpreterFactory(name string) InterpreterFactory {
	factory, _ := interpreters.get(name)
	return factory
}

func GetAllRegisteredInterpreters() map[string]InterpreterFactory {
	return interpreters.all()
}

// NewInterpreter creates a fresh instance of the named interpreter. At most
// one configuration argument may be passed.
func NewInterpreter(name string, config ...any) (Interpreter, error) {
	if len(config) > 1 {
		return nil, fmt.Errorf("invalid configuration: %d arguments", len(config))
	}
	factory, found := interpreters.get(name)
	if !found {
		return nil, fmt.Errorf("interpreter not found: %s", name)
	}
	var c any
	if len(config) > 0 {
		c = config[0]
	}
	return factory(c)
}

// GetInterpreter returns the named interpreter in its default
// configuration, or nil if there is none.
func GetInterpreter(name string) Interpreter {
	res, err := NewInterpreter(name)
	if err != nil {
		return nil
	}
	return res
}

// RegisterProcessorFactory registers a processor under the given
// case-insensitive name. It panics if the factory is nil or the name is
// already taken.
func RegisterProcessorFactory(name string, factory ProcessorFactory) {
	if err := processors.add(name, factory, factory == nil); err != nil {
		panic(err)
	}
}

func GetProcessorFactory(name string) ProcessorFactory {
	factory, _ := processors.get(name)
	return factory
}

func GetAllRegisteredProcessorFactories() map[string]ProcessorFactory {
	return processors.all()
}

// GetProcessor creates the named processor on top of the given interpreter.
// It returns nil if no such processor is known.
func GetProcessor(name string, interpreter Interpreter) Processor {
	factory, found := processors.get(name)
	if !found {
		return nil
	}
	return factory(interpreter)
}
