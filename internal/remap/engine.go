// Package remap builds, caches and applies color lookup tables.
package remap

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/singleflight"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Engine owns the process-wide lookup table cache.
//
// Concurrent requests for the same key share one in-flight build; requests
// for different keys build independently.
type Engine struct {
	cache   *lru.Cache
	group   singleflight.Group
	workers int
	builds  atomic.Int64

	build func(ctx context.Context, key Key, workers int) (*LUT, error)
}

// New creates an Engine caching up to cacheSize tables. workers bounds the
// goroutines used per table build and per frame; zero means GOMAXPROCS.
func New(cacheSize, workers int) (*Engine, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Engine{
		cache:   cache,
		workers: workers,
		build:   Build,
	}, nil
}

// Builds returns how many tables the engine has built so far.
func (e *Engine) Builds() int64 {
	return e.builds.Load()
}

// LUT returns the cached table for key, building it if needed.
//
// The build itself is detached from ctx so that a caller giving up does not
// fail the other waiters; ctx only bounds how long this caller waits.
func (e *Engine) LUT(ctx context.Context, key Key) (*LUT, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	if v, ok := e.cache.Get(key); ok {
		lutCacheHits.Inc()
		return v.(*LUT), nil
	}
	lutCacheMisses.Inc()

	ch := e.group.DoChan(key.String(), func() (interface{}, error) {
		if v, ok := e.cache.Get(key); ok {
			return v, nil
		}

		e.builds.Add(1)
		start := time.Now()

		lut, err := e.build(context.WithoutCancel(ctx), key, e.workers)
		if err != nil {
			return nil, err
		}

		lutBuilds.WithLabelValues(string(key.Flavor), string(key.Algorithm)).Inc()
		lutBuildSeconds.Observe(time.Since(start).Seconds())
		zlog.Logger.Info().
			Str("lut", key.String()).
			Dur("took", time.Since(start)).
			Msg("lut built")

		e.cache.Add(key, lut)
		return lut, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LUT), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for lut %s: %w", model.ErrCancelled, key, ctx.Err())
	}
}

// ApplyImage remaps every pixel of src into a new image. Rows are split into
// bands processed in parallel; alpha is kept as is.
func (e *Engine) ApplyImage(lut *LUT, src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)

	rows := b.Dy()
	if rows == 0 || b.Dx() == 0 {
		return dst
	}

	bands := e.workers
	if bands > rows {
		bands = rows
	}
	per := (rows + bands - 1) / bands

	var wg sync.WaitGroup
	for y0 := b.Min.Y; y0 < b.Max.Y; y0 += per {
		y1 := min(y0+per, b.Max.Y)

		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				si := src.PixOffset(b.Min.X, y)
				di := dst.PixOffset(b.Min.X, y)
				for x := 0; x < b.Dx(); x++ {
					r, g, bl := lut.Apply(src.Pix[si], src.Pix[si+1], src.Pix[si+2])
					dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2] = r, g, bl
					dst.Pix[di+3] = src.Pix[si+3]
					si += 4
					di += 4
				}
			}
		}(y0, y1)
	}
	wg.Wait()

	return dst
}
