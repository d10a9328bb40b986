// Package view holds the panel's navigation and notification state. There
// is exactly one Router per admin session, built at startup by explicit
// composition; page loads are never discovered by load order.
package view

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"platebook/internal/recipeid"
)

// ErrStale marks a navigation whose result was superseded by a newer one.
// The caller must discard the result instead of rendering it.
var ErrStale = errors.New("navigation superseded")

// ErrUnknownPage is returned for page names with no registered loader.
var ErrUnknownPage = errors.New("unknown page")

// Params carries navigation parameters, e.g. the recipe ID for the detail
// page. An "id" parameter is normalized before the loader sees it, no
// matter where the navigation originated.
type Params map[string]string

// LoadFunc fetches the data backing one page. The context is cancelled
// when the navigation is superseded.
type LoadFunc func(ctx context.Context, params Params) (any, error)

// Renderer receives the outcome of each applied navigation. Implementations
// must not call back into the Router.
type Renderer interface {
	Render(page string, data any)
	RenderError(page string, err error)
}

// Router maps page names to loaders and guarantees that only the newest
// navigation paints. Concurrent identical navigations share a single load.
type Router struct {
	mu          sync.Mutex
	pages       map[string]LoadFunc
	renderer    Renderer
	group       singleflight.Group
	generation  uint64
	cancel      context.CancelFunc
	loadCtx     context.Context
	inflightKey string
	currentPage string
	currentData any
}

// NewRouter builds an empty router. The renderer may be nil when callers
// consume Show's return value directly.
func NewRouter(renderer Renderer) *Router {
	return &Router{
		pages:    make(map[string]LoadFunc),
		renderer: renderer,
	}
}

// Handle registers the loader for a page name. Registering twice replaces
// the loader; there is never more than one definition per page.
func (rt *Router) Handle(page string, load LoadFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.pages[page] = load
}

// Current returns the page most recently rendered and its data.
func (rt *Router) Current() (string, any) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.currentPage, rt.currentData
}

// Show navigates to a page: it triggers exactly one load, cancels any
// outstanding different navigation, and applies the result only if no
// newer navigation started meanwhile. Superseded calls return ErrStale.
func (rt *Router) Show(ctx context.Context, page string, params Params) (any, error) {
	rt.mu.Lock()
	load, ok := rt.pages[page]
	if !ok {
		rt.mu.Unlock()
		return nil, ErrUnknownPage
	}
	params = normalizeParams(params)
	key := loadKey(page, params)

	rt.generation++
	gen := rt.generation
	if key != rt.inflightKey || rt.cancel == nil {
		if rt.cancel != nil {
			rt.cancel()
			// Drop the cancelled call from the flight group immediately.
			// Its loader may take a while to unwind, and a navigation back
			// to the same page must start a fresh load rather than join a
			// doomed one.
			rt.group.Forget(rt.inflightKey)
		}
		// Detach from the caller so a joined navigation survives the
		// first caller going away.
		rt.loadCtx, rt.cancel = context.WithCancel(context.WithoutCancel(ctx))
		rt.inflightKey = key
	}
	loadCtx := rt.loadCtx
	rt.mu.Unlock()

	result, err, _ := rt.group.Do(key, func() (any, error) {
		return load(loadCtx, params)
	})

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.generation != gen {
		return nil, ErrStale
	}
	if rt.cancel != nil {
		rt.cancel()
		rt.cancel = nil
	}
	rt.inflightKey = ""
	rt.currentPage = page
	if err != nil {
		rt.currentData = nil
		if rt.renderer != nil {
			rt.renderer.RenderError(page, err)
		}
		return nil, err
	}
	rt.currentData = result
	if rt.renderer != nil {
		rt.renderer.Render(page, result)
	}
	return result, nil
}

func normalizeParams(params Params) Params {
	out := make(Params, len(params))
	for k, v := range params {
		out[k] = v
	}
	if id, ok := out["id"]; ok {
		out["id"] = recipeid.Normalize(strings.TrimSpace(id))
	}
	return out
}

func loadKey(page string, params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(page)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
