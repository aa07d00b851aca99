// Package references resolves block references found in a document into an
// ordered list of referenced blocks, following nested references up to a
// bounded depth.
package references

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-docshare/internal/fault"
	"github.com/goliatone/go-docshare/internal/kramdown"
	"github.com/goliatone/go-docshare/internal/logging"
	"github.com/goliatone/go-docshare/pkg/interfaces"
)

const (
	// DefaultMaxDepth bounds how many reference hops are followed.
	DefaultMaxDepth = 5
	// DefaultFetchTimeout bounds a single block fetch.
	DefaultFetchTimeout = 10 * time.Second
)

// BlockFetcher is the part of the content source the resolver needs.
type BlockFetcher interface {
	FetchBlockContent(ctx context.Context, id string) (interfaces.BlockContent, error)
}

// Resolver walks block references. It is safe for concurrent use; every
// ResolveAll call keeps its own state, and concurrent calls share in-flight
// fetches for the same block.
type Resolver struct {
	source       BlockFetcher
	transformer  *kramdown.Transformer
	maxDepth     int
	fetchTimeout time.Duration
	logger       interfaces.Logger
	inflight     singleflight.Group
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.fetchTimeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTransformer overrides the transformer applied to fetched content.
func WithTransformer(transformer *kramdown.Transformer) Option {
	return func(r *Resolver) {
		if transformer != nil {
			r.transformer = transformer
		}
	}
}

// NewResolver builds a resolver reading blocks from source.
func NewResolver(source BlockFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		source:       source,
		maxDepth:     DefaultMaxDepth,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.transformer == nil {
		r.transformer = kramdown.NewTransformer(r.logger)
	}
	return r
}

// ResolveAll returns every block reachable from the references in
// rootContent, most referenced first. Blocks that cannot be fetched are left
// out; ResolveAll never fails.
func (r *Resolver) ResolveAll(ctx context.Context, rootContent string) []interfaces.BlockReference {
	roots := kramdown.ExtractReferences(rootContent)
	if len(roots) == 0 || r.source == nil {
		return []interfaces.BlockReference{}
	}

	a := newArena()
	r.resolveBranch(ctx, a, roots, 0, nil)
	refs := a.collect()

	r.logger.WithContext(ctx).Debug("references.resolved",
		"direct", len(roots),
		"total", len(refs),
	)
	return refs
}

func (r *Resolver) resolveBranch(ctx context.Context, a *arena, refs []kramdown.Reference, depth int, ancestors []string) {
	var g errgroup.Group
	for _, ref := range refs {
		g.Go(func() error {
			r.resolveOne(ctx, a, ref, depth, ancestors)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Resolver) resolveOne(ctx context.Context, a *arena, ref kramdown.Reference, depth int, ancestors []string) {
	logger := r.logger.WithContext(ctx)
	for _, ancestor := range ancestors {
		if ancestor == ref.BlockID {
			logger.Warn("references.cycle_detected",
				"block_id", ref.BlockID,
				"path", strings.Join(append(append([]string{}, ancestors...), ref.BlockID), " -> "),
			)
			return
		}
	}

	switch a.claim(ref, depth, r.maxDepth) {
	case claimCounted, claimPending:
		return
	case claimTooDeep:
		logger.Warn("references.depth_exceeded",
			"block_id", ref.BlockID,
			"depth", depth,
			"max_depth", r.maxDepth,
		)
		return
	}

	block, err := r.fetch(ctx, ref.BlockID)
	if err == nil && strings.TrimSpace(block.Content) == "" {
		err = fault.Fetch(nil, "references: block has no content")
	}
	if err != nil {
		a.release(ref.BlockID)
		logger.Warn("references.fetch_failed",
			"block_id", ref.BlockID,
			"depth", depth,
			"error", err,
		)
		return
	}

	nested := kramdown.ExtractReferences(block.Content)
	if len(nested) > 0 {
		path := append(append(make([]string, 0, len(ancestors)+1), ancestors...), ref.BlockID)
		r.resolveBranch(ctx, a, nested, depth+1, path)
	}
	a.complete(ref.BlockID, r.transformer.Transform(block.Content))
}

// fetch loads one block under its own timeout. Concurrent fetches of the
// same block share one request; the shared request is detached from the
// caller that started it so one caller giving up does not fail the others.
func (r *Resolver) fetch(ctx context.Context, id string) (interfaces.BlockContent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	flightCtx := context.WithoutCancel(ctx)
	ch := r.inflight.DoChan(id, func() (any, error) {
		fctx, fcancel := context.WithTimeout(flightCtx, r.fetchTimeout)
		defer fcancel()
		return r.source.FetchBlockContent(fctx, id)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return interfaces.BlockContent{}, fault.Fetch(res.Err, "references: fetch block "+id)
		}
		return res.Val.(interfaces.BlockContent), nil
	case <-ctx.Done():
		return interfaces.BlockContent{}, fault.Fetch(ctx.Err(), "references: fetch block "+id)
	}
}

type slotState int

const (
	unvisited slotState = iota
	resolving
	resolved
)

type slot struct {
	state   slotState
	label   string
	content string
	hits    int
	order   int
}

type claimResult int

const (
	claimOwned claimResult = iota
	claimCounted
	claimPending
	claimTooDeep
)

// arena holds per-call resolution state keyed by block id.
type arena struct {
	mu    sync.Mutex
	slots map[string]*slot
	next  int
}

func newArena() *arena {
	return &arena{slots: make(map[string]*slot)}
}

// claim records one occurrence of ref. Only claimOwned asks the caller to
// fetch; an occurrence seen while another branch owns the block is counted
// when that branch completes.
func (a *arena) claim(ref kramdown.Reference, depth, maxDepth int) claimResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.slots[ref.BlockID]
	if s != nil && s.state != unvisited {
		s.hits++
		if s.label == "" {
			s.label = ref.Label
		}
		if s.state == resolved {
			return claimCounted
		}
		return claimPending
	}
	if depth >= maxDepth {
		return claimTooDeep
	}
	a.slots[ref.BlockID] = &slot{state: resolving, label: ref.Label, hits: 1}
	return claimOwned
}

// release forgets a block whose fetch failed. Occurrences counted against it
// are dropped with it.
func (a *arena) release(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.slots, id)
}

func (a *arena) complete(id, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.slots[id]
	if s == nil {
		return
	}
	s.state = resolved
	s.content = content
	s.order = a.next
	a.next++
}

func (a *arena) collect() []interfaces.BlockReference {
	a.mu.Lock()
	defer a.mu.Unlock()

	done := make([]resolvedEntry, 0, len(a.slots))
	for id, s := range a.slots {
		if s.state == resolved {
			done = append(done, resolvedEntry{id: id, slot: s})
		}
	}
	slices.SortFunc(done, func(x, y resolvedEntry) int {
		if x.hits != y.hits {
			return cmp.Compare(y.hits, x.hits)
		}
		return cmp.Compare(x.order, y.order)
	})

	refs := make([]interfaces.BlockReference, 0, len(done))
	for _, entry := range done {
		refs = append(refs, interfaces.BlockReference{
			BlockID:     entry.id,
			Content:     entry.content,
			DisplayText: entry.label,
			RefCount:    entry.hits,
		})
	}
	return refs
}

type resolvedEntry struct {
	id string
	*slot
}
