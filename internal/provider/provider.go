// Package provider supplies ir.Provider implementations backed by a
// single dedicated worker goroutine, matching how the original source
// keeps all item/IR/type-checking state behind one thread
// (rustc_worker.rs's "everything routes through the rustc thread"
// design, and cache_provider.rs's request/response channel pair)
// rather than letting arbitrary goroutines touch a shared, mutable
// symbol table directly. Cache lookups inside package items already
// have their own fine-grained locks (spec.md §5); this package's worker
// exists for the one piece of state that is NOT safe for concurrent
// access: building IR from source, which walks a single typed AST.
package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/polyvm/polyvm/internal/ir"
	"github.com/polyvm/polyvm/internal/types"
)

type request struct {
	run  func() (any, error)
	resp chan response
}

type response struct {
	val any
	err error
}

// Worker serializes all IR-building/item-lookup work for one in-memory
// program onto a single goroutine, started by Run and fed via the
// request channel. Concurrent callers each get their own response
// channel, so fan-out callers never block each other's receipt of a
// result, only the single compute step itself.
type Worker struct {
	source   Source
	requests chan request
}

// Source is the thing the worker goroutine drives: an in-memory or
// on-disk program description it can turn into IR/ADT info/impl lists
// on demand. A concrete Source is supplied by cmd/funxy's demo program.
type Source interface {
	BuildIR(types.ItemID) (*ir.Function, error)
	BuildADT(types.ItemID) (*ir.AdtInfo, error)
	ItemByID(types.ItemID) (ir.ItemMeta, bool)
	ItemByPath(crate uint32, path string) (types.ItemID, bool)
	TraitImpl(types.ItemID) ([]ir.TraitImpl, error)
	InherentImpl(types.ItemID) ([]ir.TraitImpl, error)
}

func NewWorker(source Source) *Worker {
	return &Worker{source: source, requests: make(chan request)}
}

// Run drains requests until ctx is cancelled, using an errgroup so the
// caller can wait for a clean shutdown alongside any other goroutines in
// the same group (e.g. a VM thread pool started in the same cmd/funxy
// session).
func (w *Worker) Run(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case req := <-w.requests:
				val, err := req.run()
				req.resp <- response{val: val, err: err}
			}
		}
	})
}

func (w *Worker) call(run func() (any, error)) (any, error) {
	resp := make(chan response, 1)
	w.requests <- request{run: run, resp: resp}
	r := <-resp
	return r.val, r.err
}

// Provider adapts Worker to ir.Provider, routing every method through
// the single worker goroutine.
type Provider struct {
	worker *Worker
}

func NewProvider(w *Worker) *Provider {
	return &Provider{worker: w}
}

func (p *Provider) ItemByID(id types.ItemID) (ir.ItemMeta, bool) {
	val, err := p.worker.call(func() (any, error) {
		meta, ok := p.worker.source.ItemByID(id)
		if !ok {
			return nil, fmt.Errorf("provider: item %s not found", id)
		}
		return meta, nil
	})
	if err != nil {
		return ir.ItemMeta{}, false
	}
	return val.(ir.ItemMeta), true
}

func (p *Provider) ItemByPath(crate uint32, path string) (types.ItemID, bool) {
	val, err := p.worker.call(func() (any, error) {
		id, ok := p.worker.source.ItemByPath(crate, path)
		if !ok {
			return nil, fmt.Errorf("provider: path %q not found", path)
		}
		return id, nil
	})
	if err != nil {
		return types.ItemID{}, false
	}
	return val.(types.ItemID), true
}

func (p *Provider) BuildIR(id types.ItemID) (*ir.Function, error) {
	val, err := p.worker.call(func() (any, error) { return p.worker.source.BuildIR(id) })
	if err != nil {
		return nil, err
	}
	return val.(*ir.Function), nil
}

func (p *Provider) BuildADT(id types.ItemID) (*ir.AdtInfo, error) {
	val, err := p.worker.call(func() (any, error) { return p.worker.source.BuildADT(id) })
	if err != nil {
		return nil, err
	}
	return val.(*ir.AdtInfo), nil
}

func (p *Provider) TraitImpl(id types.ItemID) ([]ir.TraitImpl, error) {
	val, err := p.worker.call(func() (any, error) { return p.worker.source.TraitImpl(id) })
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	return val.([]ir.TraitImpl), nil
}

func (p *Provider) InherentImpl(id types.ItemID) ([]ir.TraitImpl, error) {
	val, err := p.worker.call(func() (any, error) { return p.worker.source.InherentImpl(id) })
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	return val.([]ir.TraitImpl), nil
}
