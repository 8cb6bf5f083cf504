// Package lifecycle starts process components in order and stops them in reverse.
package lifecycle

import (
	"context"
	"errors"

	pkgErrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Hooks adapts a pair of functions to Component; nil hooks are no-ops.
type Hooks struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h Hooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h Hooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

type named struct {
	name string
	Component
}

type Runtime struct {
	components []named
	started    []named
	logger     *log.Entry
}

func NewRuntime() *Runtime {
	return &Runtime{logger: log.WithField("object", "Runtime")}
}

// Register appends a component; it starts after everything registered before it.
func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, named{name: name, Component: component})
}

// Start starts components in order; on failure the ones already running are stopped.
func (r *Runtime) Start(ctx context.Context) error {
	r.started = r.started[:0]
	for _, c := range r.components {
		if err := c.Start(ctx); err != nil {
			_ = r.stop(ctx, r.started)
			r.started = nil
			return pkgErrors.WithMessage(err, "start "+c.name)
		}
		r.logger.WithField("component", c.name).Debug("started")
		r.started = append(r.started, c)
	}
	return nil
}

// Stop stops started components in reverse order and joins their errors.
func (r *Runtime) Stop(ctx context.Context) error {
	err := r.stop(ctx, r.started)
	r.started = nil
	return err
}

func (r *Runtime) stop(ctx context.Context, components []named) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.Stop(ctx); err != nil {
			r.logger.WithField("component", c.name).WithField("error", err.Error()).Warn("stop failed")
			stopErr = errors.Join(stopErr, pkgErrors.WithMessage(err, "stop "+c.name))
			continue
		}
		r.logger.WithField("component", c.name).Debug("stopped")
	}
	return stopErr
}
