package export

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Coalescing wraps an Exporter so that identical exports requested while one
// is already running share its result instead of rendering twice. A shared
// render keeps running while any caller still waits for it and is cancelled
// once the last one gives up.
type Coalescing struct {
	next   Exporter
	group  singleflight.Group
	logger zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the render shared by the callers waiting on one export key.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewCoalescing wraps next.
func NewCoalescing(next Exporter, logger zerolog.Logger) *Coalescing {
	return &Coalescing{
		next:    next,
		logger:  logger.With().Str("component", "pdf-coalescing").Logger(),
		flights: make(map[string]*flight),
	}
}

// Export runs or joins the export identified by target and cfg.
func (c *Coalescing) Export(ctx context.Context, target RenderTarget, cfg Config) (*Result, error) {
	key := exportKey(target, cfg)
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.next.Export(f.ctx, target, cfg)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Str("filename", cfg.Filename).Msg("joined in-flight export")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

// join registers a waiter on the flight for key, starting one if needed.
// The flight context keeps ctx's values but not its cancellation.
func (c *Coalescing) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

// leave drops a waiter. The last one out cancels the render and forgets the
// key so that a later request starts afresh.
func (c *Coalescing) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
		c.group.Forget(key)
	}
}

// exportKey fingerprints everything that affects the rendered document.
func exportKey(target RenderTarget, cfg Config) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%+v", target.Kind, target.Title, cfg)
	for _, p := range target.Products {
		fmt.Fprintf(h, "|%s|%s|%s|%s|%s|%d|%v", p.ID, p.Title, p.Category, p.Description, p.Dimensions, len(p.Image), p.Specifications)
		h.Write([]byte(p.Image))
	}
	return fmt.Sprintf("%s:%x", target.Kind, h.Sum64())
}

var pageObject = regexp.MustCompile(`/Type\s*/Page[^s]`)

// estimatePageCount counts page objects in raw PDF data.
func estimatePageCount(data []byte) int {
	n := len(pageObject.FindAllIndex(data, -1))
	if n == 0 && bytes.HasPrefix(data, []byte("%PDF")) {
		return 1
	}
	return n
}
