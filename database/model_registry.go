/*
 * Copyright 2025 tidegate.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var defaultRegistry = newModelRegistry()

// Model is a registered entity: the struct instance Bun maps, the entity
// name repositories resolve it by, and a priority controlling table
// creation order (lower first).
type Model interface {
	Name() string
	Instance() interface{}
	Priority() int
}

type modelRegistry struct {
	byName map[string]Model
	order  []Model
	mutex  sync.RWMutex
}

func newModelRegistry() *modelRegistry {
	return &modelRegistry{byName: make(map[string]Model)}
}

func (r *modelRegistry) register(model Model) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, dup := r.byName[model.Name()]; dup {
		return
	}
	r.byName[model.Name()] = model
	r.order = append(r.order, model)
}

func (r *modelRegistry) lookup(name string) (Model, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

func (r *modelRegistry) models() []Model {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make([]Model, len(r.order))
	copy(result, r.order)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type modelAdapter struct {
	name     string
	instance interface{}
	priority int
}

func (a *modelAdapter) Name() string          { return a.name }
func (a *modelAdapter) Instance() interface{} { return a.instance }
func (a *modelAdapter) Priority() int         { return a.priority }

// RegisterModel registers instance under the entity name derived from its
// struct type.
func RegisterModel(instance interface{}, priority int) {
	RegisterNamedModel(EntityNameOf(reflect.TypeOf(instance)), instance, priority)
}

// RegisterNamedModel registers instance under an explicit entity name.
// Registering the same name twice keeps the first entry.
func RegisterNamedModel(name string, instance interface{}, priority int) {
	defaultRegistry.register(&modelAdapter{name: name, instance: instance, priority: priority})
}

// LookupModel returns the registered model for an entity name.
func LookupModel(name string) (Model, bool) {
	return defaultRegistry.lookup(name)
}

// RegisteredModels returns all registered models in ascending priority.
func RegisteredModels() []Model {
	return defaultRegistry.models()
}

// RegisteredModelInstances returns the model instances in priority order,
// ready for bun.DB.RegisterModel.
func RegisteredModelInstances() []interface{} {
	models := RegisteredModels()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}

// EntityNameOf derives the entity name for a model struct type: pointers
// are unwrapped, a trailing "Model" suffix is stripped, and the first rune
// is lower-cased ("UserModel" and "User" both yield "user").
func EntityNameOf(typ reflect.Type) string {
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil {
		return ""
	}
	name := typ.Name()
	if trimmed := strings.TrimSuffix(name, "Model"); trimmed != "" {
		name = trimmed
	}
	if name == "" {
		return ""
	}
	runes := []rune(name)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
