// Package middleware wraps a RunStore with cross-cutting archive behavior:
// masking sensitive text before it is written and sealing records at rest.
package middleware

import "github.com/aretw0/furrow/pkg/ports"

// Middleware allows wrapping a RunStore to add behavior.
type Middleware func(ports.RunStore) ports.RunStore

// Chain applies middlewares around a store. The first middleware is the
// outermost wrapper: it sees a Save before the others and a Load after them.
func Chain(store ports.RunStore, middlewares ...Middleware) ports.RunStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
