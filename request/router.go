// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoHandler is returned when a request's kind has no handler.
	ErrNoHandler = errors.New("no handler for request kind")

	// ErrDuplicateHandler is returned when a kind is registered twice.
	ErrDuplicateHandler = errors.New("handler already registered")
)

// Handler processes a request and returns the signed packet in base64.
type Handler func(ctx context.Context, req *Request) (string, error)

// Router dispatches requests to the handler registered for their kind.
type Router struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRouter returns a router with no handlers.
func NewRouter() *Router {
	return &Router{handlers: make(map[Kind]Handler)}
}

// Register installs h for kind.
func (r *Router) Register(kind Kind, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateHandler, kind)
	}
	r.handlers[kind] = h

	return nil
}

// Dispatch hands req to its handler.
func (r *Router) Dispatch(ctx context.Context, req *Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.RLock()
	h, ok := r.handlers[req.Kind]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %v", ErrNoHandler, req.Kind)
	}

	log.Debugf("Dispatching %v request for %v", req.Kind, req.Amount)

	return h(ctx, req)
}
