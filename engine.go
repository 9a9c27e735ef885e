package featurescope

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/jward/featurescope/internal/encode"
	"github.com/jward/featurescope/internal/manifest"
	"github.com/jward/featurescope/internal/resolve"
	"github.com/jward/featurescope/internal/store"
)

// Engine loads a workspace once and answers resolution and planning
// requests against it.
type Engine struct {
	ws     *manifest.Workspace
	store  *store.Store
	logger *log.Logger

	cachePath   string
	useParallel bool

	resolveOnce sync.Once
	res         *resolve.Resolution
	resErr      error
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables the plan cache at dbPath. Failing to open it is logged
// and leaves the cache disabled.
func WithCache(dbPath string) Option {
	return func(e *Engine) {
		e.cachePath = dbPath
	}
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallel controls parallel edge resolution. When true (default),
// edges are resolved on a worker pool after serial validation.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// DefaultCachePath returns the cache location used when none is configured.
func DefaultCachePath(root string) string {
	return filepath.Join(root, ".featurescope", "cache.db")
}

// New loads the workspace rooted at root.
func New(root string, opts ...Option) (*Engine, error) {
	e := &Engine{useParallel: true}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}

	ws, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}
	e.ws = ws
	e.logger.Debug("loaded workspace", "root", ws.Root, "members", len(ws.Packages))

	if e.cachePath != "" {
		e.store = openCache(e.cachePath, e.logger)
	}
	return e, nil
}

func openCache(path string, logger *log.Logger) *store.Store {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("plan cache disabled", "path", path, "err", err)
		return nil
	}
	s, err := store.NewStore(path)
	if err != nil {
		logger.Warn("plan cache disabled", "path", path, "err", err)
		return nil
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		logger.Warn("plan cache disabled", "path", path, "err", err)
		return nil
	}
	return s
}

// Close releases the cache database, if one is open.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Workspace returns the loaded workspace model.
func (e *Engine) Workspace() *Workspace {
	return e.ws
}

// Resolve validates the configuration and resolves every edge. The result
// is computed once per Engine.
func (e *Engine) Resolve(ctx context.Context) (*Resolution, error) {
	e.resolveOnce.Do(func() {
		tasks, err := resolve.Tasks(resolve.InputFromWorkspace(e.ws))
		if err != nil {
			e.resErr = err
			return
		}
		var edges []resolve.Edge
		if e.useParallel {
			edges, err = resolveParallel(ctx, tasks)
		} else {
			edges, err = resolveSerial(ctx, tasks)
		}
		if err != nil {
			e.resErr = err
			return
		}
		e.res = resolve.Collect(edges)
		e.logger.Debug("resolved edges", "count", len(e.res.Edges))
	})
	return e.res, e.resErr
}

func resolveSerial(ctx context.Context, tasks []resolve.Task) ([]resolve.Edge, error) {
	edges := make([]resolve.Edge, len(tasks))
	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edges[i] = t.Resolve()
	}
	return edges, nil
}

// Plan returns the encoded plan for a build of target ("" for the whole
// workspace). Plans are served from the cache when the configuration files
// are unchanged.
func (e *Engine) Plan(ctx context.Context, target PackageID) (*Plan, error) {
	var key string
	if e.store != nil {
		if k, err := store.InputHash(e.ws.InputFiles(), string(target)); err != nil {
			e.logger.Warn("plan cache key", "err", err)
		} else {
			key = k
			if plan, ok := e.cachedPlan(key); ok {
				return plan, nil
			}
		}
	}

	res, err := e.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := encode.Build(e.ws, res, target)
	if err != nil {
		return nil, err
	}
	if key != "" {
		e.storePlan(key, plan)
	}
	return plan, nil
}

func (e *Engine) cachedPlan(key string) (*Plan, bool) {
	cached, err := e.store.GetPlan(key)
	if err != nil {
		e.logger.Warn("plan cache read", "err", err)
		return nil, false
	}
	if cached == nil {
		return nil, false
	}
	var plan encode.Plan
	if err := json.Unmarshal(cached.Plan, &plan); err != nil {
		e.logger.Warn("plan cache entry unreadable", "err", err)
		return nil, false
	}
	e.logger.Debug("plan cache hit", "target", plan.Target, "fingerprint", plan.Fingerprint)
	return &plan, true
}

func (e *Engine) storePlan(key string, plan *Plan) {
	data, err := json.Marshal(plan)
	if err != nil {
		e.logger.Warn("plan cache write", "err", err)
		return
	}
	err = e.store.PutPlan(&store.CachedPlan{
		InputHash:   key,
		Target:      string(plan.Target),
		Fingerprint: plan.Fingerprint,
		Plan:        data,
	})
	if err != nil {
		e.logger.Warn("plan cache write", "err", err)
		return
	}
	if _, err := e.store.PrunePlans(maxCachedPlans); err != nil {
		e.logger.Warn("plan cache prune", "err", err)
	}
}

const maxCachedPlans = 64
