// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package registry provides session-scoped bulk release of graph nodes.
//
// Example:
//
//	err := registry.Scope("train-step", func(r *registry.Registry) error {
//	    loss := model(params)
//	    return loss.Backward(autograd.BackwardConfig{})
//	})
package registry

import (
	"github.com/born-ml/autograd/internal/registry"
)

// Registry is the ledger of nodes created in a session.
type Registry = registry.Registry

// Node is a node whose lifetime a Registry tracks.
type Node = registry.Node

// State is a node lifecycle state.
type State = registry.State

// Stats summarizes tracked nodes.
type Stats = registry.Stats

// Lifecycle states.
const (
	Open    = registry.Open
	Closing = registry.Closing
	Closed  = registry.Closed
)

// New creates an empty registry for the named session.
func New(name string) *Registry {
	return registry.New(name)
}

// Push makes r the active registry.
func Push(r *Registry) {
	registry.Push(r)
}

// Pop removes and returns the active registry.
func Pop() *Registry {
	return registry.Pop()
}

// Active returns the active registry, or nil.
func Active() *Registry {
	return registry.Active()
}

// Scope runs fn with a fresh active registry and closes it afterwards.
func Scope(name string, fn func(r *Registry) error) error {
	return registry.Scope(name, fn)
}
