// Copyright © 2024 Aqsis-core contributors.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package runtime wires the RI boundary (package ri) to the bucket engine
// (package bucket) and the display manager (package display): it is the
// ri.Engine implementation a caller constructs once and hands to
// ri.NewContext, and it owns the bucket-parallel worker pool that
// renders a world block after WorldEnd.
package runtime

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/aqsisrender/core/bucket"
	"github.com/aqsisrender/core/display"
	"github.com/aqsisrender/core/math/geom"
	"github.com/aqsisrender/core/prim"
	"github.com/aqsisrender/core/shader"
	"github.com/aqsisrender/core/state"
	"github.com/aqsisrender/core/stats"
	"github.com/aqsisrender/core/texture"
)

// Engine implements ri.Engine: it accumulates one world block's primitives
// into a bucket grid and, on EndWorld, dices/shades/samples/filters every
// bucket through a pool of worker goroutines and hands finished buckets to
// a display.Manager. One Engine is reused across frames; BeginWorld resets
// its per-frame state.
type Engine struct {
	Display *display.Manager
	Stats   *stats.Handler
	Counts  *stats.Counters
	log     *slog.Logger
	workers int

	opts          *state.Options
	worldToCamera geom.M4
	pipeline      *bucket.Pipeline
	grid          *bucket.Grid
	occ           *bucket.Occlusion

	mu      sync.Mutex
	buckets map[[2]int]*bucket.Bucket

	// Shadow-hider state: the frame-wide depth buffer finishBucket fills
	// (disjoint per bucket, so no lock is needed during the finish pass)
	// and the map EndWorld assembles from it.
	shadowDepths []float32
	shadow       *texture.ShadowMap

	quit atomic.Bool
}

// NewEngine returns an Engine that fans finished buckets out to disp.
// workers <= 0 defaults to runtime.NumCPU, one worker goroutine per
// core.
func NewEngine(disp *display.Manager, h *stats.Handler, counts *stats.Counters, log *slog.Logger, workers int) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{Display: disp, Stats: h, Counts: counts, log: log, workers: workers}
}

// RequestStop asks an in-progress EndWorld to abandon remaining buckets at
// their next boundary, e.g. from a caller's SIGINT handler.
func (e *Engine) RequestStop() { e.quit.Store(true) }

// BeginWorld implements ri.Engine, building the frame's camera, bucket
// grid, and occlusion structure from o. A ShadowHider frame additionally
// allocates the frame-sized depth buffer EndWorld assembles into a
// texture.ShadowMap.
func (e *Engine) BeginWorld(o *state.Options, worldToCamera geom.M4, lights map[int]shader.Shader, imager shader.Shader, csgTrees []*bucket.CSGNode) {
	e.opts = o
	e.worldToCamera = worldToCamera
	e.pipeline = bucket.NewPipeline(o, e.Stats)
	e.pipeline.Lights = lights
	e.pipeline.Imager = imager
	e.pipeline.CSGTrees = csgTrees

	e.shadow = nil
	e.shadowDepths = nil
	if o.Hider == state.ShadowHider {
		e.shadowDepths = make([]float32, o.XRes*o.YRes)
		for i := range e.shadowDepths {
			e.shadowDepths[i] = math.MaxFloat32
		}
	}

	x0, x1, y0, y1 := o.CropPixels()
	e.grid = bucket.NewGrid(x0, y0, x1, y1, o.BucketSize[0], o.BucketSize[1])
	e.occ = bucket.NewOcclusion(e.grid.BucketsX, e.grid.BucketsY)

	e.mu.Lock()
	e.buckets = map[[2]int]*bucket.Bucket{}
	e.mu.Unlock()
	// Split children and edge-crossing micropolygons may fall in a
	// bucket other than the one being processed; the pipeline routes
	// them through the lazily-allocating bucket lookup.
	e.pipeline.BucketAt = e.bucketFor
	e.quit.Store(false)
}

// bucketFor returns the bucket at grid coordinate (bx, by), lazily
// allocating it on first touch (a bucket may receive no primitives and
// still need to exist so EndWorld writes its blank pixels to the display).
func (e *Engine) bucketFor(bx, by int) *bucket.Bucket {
	key := [2]int{bx, by}
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.buckets[key]; ok {
		return b
	}
	x0, y0, x1, y1 := e.grid.Bounds(bx, by)
	b := bucket.NewBucket(bx, by, x0, y0, x1, y1, e.opts.PixelSamples[0], e.opts.PixelSamples[1], e.opts.ShutterOpen, e.opts.ShutterClose)
	e.buckets[key] = b
	return b
}

// AddPrimitive implements ri.Engine, binding p to the bucket its raster
// bound's near corner falls in.
func (e *Engine) AddPrimitive(p prim.Primitive, bound geom.Bound, csgNode string, motionDeltas []geom.M4) {
	raster := e.pipeline.Camera.RasterBound(bound)
	bx, by := e.grid.BucketFor(raster.Min.X, raster.Min.Y)
	b := e.bucketFor(bx, by)
	b.AddPrimitiveJob(bucket.PrimitiveJob{Prim: p, Bound: bound, CSGNode: csgNode, MotionDeltas: motionDeltas})
	if e.Counts != nil {
		e.Counts.PrimitivesQueued.Add(1)
	}
}

// EndWorld implements ri.Engine: it opens the display manager, runs
// worker-pool sample passes over e.grid.Order() until every bucket's
// queues are drained, then runs one finish pass. The pixel filter's
// kernel support reaches past a bucket's own edge into its neighbours,
// so every bucket's samples must exist before any bucket starts
// filtering — the sample passes fill every bucket's pixels first (a
// barrier at each runPass's wg.Wait), and only then does finishBucket
// read across bucket boundaries through globalPixelAt and hand buckets
// to the display manager. Splitting sampling from finishing this way is
// what lets globalPixelAt reach into a neighbour bucket's Pixels
// without racing that neighbour's own sampling writes.
func (e *Engine) EndWorld() error {
	order := e.grid.Order()
	info := display.FrameInfo{
		Name: e.opts.DisplayName,
		XRes: e.opts.XRes, YRes: e.opts.YRes,
		X0: e.grid.X0, Y0: e.grid.Y0, X1: e.grid.X1, Y1: e.grid.Y1,
		Mode:          e.opts.DisplayMode,
		ColorQuantize: e.opts.ColorQuantize,
		DepthQuantize: e.opts.DepthQuantize,
	}
	if err := e.Display.Open(info, len(order)); err != nil {
		return fmt.Errorf("runtime: opening display: %w", err)
	}

	// A worker splitting or dicing in one bucket may queue children and
	// micropolygons into buckets whose own drain already ran, so the
	// sample pass repeats until every bucket's queues are quiet. Work
	// only ever flows from a bucket to the same or a later one (a child
	// binds by its raster min corner), so each extra pass strictly
	// drains what the previous one produced.
	for {
		if err := e.runPass(order, e.sampleBucket); err != nil {
			return err
		}
		if e.quit.Load() || !e.pendingWork() {
			break
		}
	}
	if err := e.runPass(order, e.finishBucket); err != nil {
		return err
	}

	if err := e.Display.Close(); err != nil {
		return fmt.Errorf("runtime: closing display: %w", err)
	}
	if e.shadowDepths != nil {
		return e.saveShadowMap()
	}
	return nil
}

// runPass fans coords out across e.workers goroutines, calling work for
// each, and returns the first error any worker reports (after which the
// quit flag stops remaining buckets from starting; in-flight buckets
// finish and flush).
func (e *Engine) runPass(coords [][2]int, work func(bx, by int) error) error {
	jobs := make(chan [2]int)
	var wg sync.WaitGroup
	var firstErr atomic.Value // stores error
	wg.Add(e.workers)
	for i := 0; i < e.workers; i++ {
		go func() {
			defer wg.Done()
			for coord := range jobs {
				if e.quit.Load() {
					continue
				}
				if err := work(coord[0], coord[1]); err != nil {
					firstErr.CompareAndSwap(nil, err)
					e.quit.Store(true)
				}
			}
		}()
	}
	for _, coord := range coords {
		jobs <- coord
	}
	close(jobs)
	wg.Wait()

	if v := firstErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// globalPixelAt looks up the Pixel at raster coordinate (x, y) regardless
// of which bucket owns it, lazily allocating that bucket if this is its
// first touch. Safe to call only once every bucket's sampling
// pass has completed (see EndWorld) — it is how finishBucket reaches a
// neighbouring bucket's samples for the pixel filter's kernel support
// without racing that neighbour's own sampleBucket.
func (e *Engine) globalPixelAt(x, y int) (*bucket.Pixel, bool) {
	if x < e.grid.X0 || x >= e.grid.X1 || y < e.grid.Y0 || y >= e.grid.Y1 {
		return nil, false
	}
	bx, by := e.grid.BucketFor(float64(x), float64(y))
	p := e.bucketFor(bx, by).PixelAt(x, y)
	return p, p != nil
}

// sampleBucket drains bx,by's primitive and micropolygon queues,
// populating its Pixels with every sample a primitive binned to this
// bucket contributes. Both queues pop through the bucket's lock:
// neighbouring workers keep feeding them while this drain runs, and
// anything queued after the drain exits is caught by EndWorld's next
// sample pass.
func (e *Engine) sampleBucket(bx, by int) error {
	b := e.bucketFor(bx, by)
	o := e.opts

	for {
		job, ok := b.NextPrimitive()
		if !ok {
			break
		}
		e.pipeline.DiceOrSplit(b, e.grid, job, o.ShutterOpen)
	}

	dofActive := o.FStop < 1e37
	zthreshold := o.ZThreshold
	for {
		job, ok := b.NextMicro()
		if !ok {
			break
		}
		e.pipeline.SampleMicropolygon(b, job, dofActive, o.FStop, o.FocalLength, o.FocalDistance, zthreshold, e.occ)
	}
	return nil
}

// pendingWork reports whether any bucket still has queued primitives or
// micropolygons, i.e. whether the sample pass must run again.
func (e *Engine) pendingWork() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.buckets {
		if b.PendingWork() {
			return true
		}
	}
	return false
}

// finishBucket filters, exposes, and quantizes bx,by's own pixels — each
// reaching across bucket boundaries through globalPixelAt for its
// filter kernel's neighbour support — and hands
// the result to the display manager. Under the shadow hider the bucket
// writes only z values: no color compositing, no
// exposure, no imager; the per-pixel depth also lands in the frame-wide
// depth buffer EndWorld saves through the texture subsystem.
func (e *Engine) finishBucket(bx, by int) error {
	b := e.bucketFor(bx, by)

	out := display.Bucket{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1, Pixels: make([]display.Sample, b.Width()*b.Height())}
	for y := b.Y0; y < b.Y1; y++ {
		for x := b.X0; x < b.X1; x++ {
			if e.shadowDepths != nil {
				z, hasZ := e.pipeline.DepthAtPixel(x, y, e.globalPixelAt)
				out.Pixels[(y-b.Y0)*b.Width()+(x-b.X0)] = display.Sample{Z: z, HasZ: hasZ}
				if hasZ {
					e.shadowDepths[y*e.opts.XRes+x] = float32(z)
				}
				continue
			}
			color, alpha, z, hasZ := e.pipeline.FinishPixel(bx, by, x, y, e.globalPixelAt)
			out.Pixels[(y-b.Y0)*b.Width()+(x-b.X0)] = display.Sample{Color: color, Alpha: alpha, Z: z, HasZ: hasZ}
		}
	}
	if e.Counts != nil {
		e.Counts.BucketsRendered.Add(1)
	}
	return e.Display.WriteBucket(out)
}

// ShadowMap returns the depth map assembled by the last ShadowHider
// EndWorld, or nil if the last frame used the hidden hider.
func (e *Engine) ShadowMap() *texture.ShadowMap { return e.shadow }

// saveShadowMap assembles the shadow-hider depth buffer into a
// texture.ShadowMap carrying the light's worldToCamera/worldToScreen and
// writes it through the texture subsystem.
func (e *Engine) saveShadowMap() error {
	var worldToScreen geom.M4
	worldToScreen.Mult(&e.worldToCamera, &e.pipeline.Camera.CameraToScreen)
	e.shadow = texture.NewShadowMap(e.opts.XRes, e.opts.YRes, e.worldToCamera, worldToScreen, e.shadowDepths)

	if e.opts.DisplayName == "" || e.opts.DisplayType == "framebuffer" {
		return nil
	}
	f, err := os.Create(e.opts.DisplayName)
	if err != nil {
		return fmt.Errorf("runtime: creating shadow map %s: %w", e.opts.DisplayName, err)
	}
	defer f.Close()
	if e.opts.DisplayType == "zfile" {
		err = texture.WriteZFile(f, e.shadow.ToZFile())
	} else {
		err = texture.WriteShadowTIFF(f, e.shadow)
	}
	if err != nil {
		return fmt.Errorf("runtime: writing shadow map %s: %w", e.opts.DisplayName, err)
	}
	e.log.Info("shadow map written", slog.String("name", e.opts.DisplayName), slog.Int("xres", e.opts.XRes), slog.Int("yres", e.opts.YRes))
	return nil
}
