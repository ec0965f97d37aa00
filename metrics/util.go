package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce registers c with the default registry. If an identical
// collector is already registered, the existing one is returned instead, so
// metrics may be created more than once per process (e.g. in tests).
// Panics if c cannot be registered.
func registerOnce[C prometheus.Collector](c C) C {
	err := prometheus.Register(c)
	if err == nil {
		return c
	}
	are := &prometheus.AlreadyRegisteredError{}
	if !errors.As(err, are) {
		panic(err)
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		panic(err)
	}
	return existing
}
