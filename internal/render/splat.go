package render

import (
	"math"
	"runtime"
	"sync"

	"github.com/guidoenr/spherizer/internal/particle"
	"github.com/guidoenr/spherizer/internal/scene"
)

// referenceHeight is the viewport height, in pixels, that particle sizes are tuned for.
const referenceHeight = 800.0

// pointRadius is the footprint below which a sprite is deposited into a single cell.
const pointRadius = 0.75

// splat is one particle's footprint on the raster, in cell units.
type splat struct {
	cx, cy  float64
	rx, ry  float64
	r, g, b float64
	weight  float64
}

// accumulator additively blends particle sprites into a width×height grid.
type accumulator struct {
	width  int
	height int
	lum    []float64
	rgb    []float64
	splats []splat
	rows   [][]int32
}

func (acc *accumulator) reset(width, height int) {
	acc.width = width
	acc.height = height
	cells := width * height
	if cap(acc.lum) < cells {
		acc.lum = make([]float64, cells)
		acc.rgb = make([]float64, cells*3)
	}
	acc.lum = acc.lum[:cells]
	acc.rgb = acc.rgb[:cells*3]
	for i := range acc.lum {
		acc.lum[i] = 0
	}
	for i := range acc.rgb {
		acc.rgb[i] = 0
	}
	if len(acc.rows) != height {
		acc.rows = make([][]int32, height)
	}
	for y := range acc.rows {
		acc.rows[y] = acc.rows[y][:0]
	}
	acc.splats = acc.splats[:0]
}

// project maps every particle onto the grid and buckets it by the rows it covers.
// cellAspect is the height/width ratio of one cell; maxRadius caps a footprint in rows.
// Footprints under a cell, or every footprint when pointOnly is set, land in one cell.
func (acc *accumulator) project(buf *particle.Buffers, sc *scene.Scene, opacity, cellAspect, maxRadius float64, pointOnly bool) {
	w, h := float64(acc.width), float64(acc.height)
	for i := 0; i < buf.Len(); i++ {
		p, ok := sc.Project(buf.Position(i))
		if !ok {
			continue
		}
		cx, cy := scene.ToPixel(p.X, p.Y, acc.width, acc.height)

		ry := float64(buf.Sizes[i]) * p.Scale * 0.5 / referenceHeight * h
		if maxRadius > 0 && ry > maxRadius {
			ry = maxRadius
		}
		rx := ry * cellAspect
		coverage := 1.0
		point := pointOnly || (rx < pointRadius && ry < pointRadius)
		if point {
			if !pointOnly {
				coverage = math.Min(1, math.Pi*rx*ry)
			}
			rx, ry = 0, 0
			if cx < 0 || cx >= w || cy < 0 || cy >= h {
				continue
			}
		} else if cx+rx < 0 || cx-rx >= w || cy+ry < 0 || cy-ry >= h {
			continue
		}

		weight := float64(buf.Alphas[i]) * opacity * coverage
		if weight <= 0 || math.IsNaN(weight) {
			continue
		}
		c := buf.Color(i)
		idx := int32(len(acc.splats))
		acc.splats = append(acc.splats, splat{
			cx: cx, cy: cy, rx: rx, ry: ry,
			r: c[0], g: c[1], b: c[2],
			weight: weight,
		})

		y0 := clampInt(int(math.Floor(cy-ry)), 0, acc.height-1)
		y1 := clampInt(int(math.Floor(cy+ry)), 0, acc.height-1)
		for y := y0; y <= y1; y++ {
			acc.rows[y] = append(acc.rows[y], idx)
		}
	}
}

// accumulateRow blends every splat touching row y. Rows are independent so workers
// may process different rows concurrently.
func (acc *accumulator) accumulateRow(y int, blur float64) {
	base := y * acc.width
	fy := float64(y) + 0.5
	for _, idx := range acc.rows[y] {
		s := &acc.splats[idx]
		if s.rx == 0 {
			acc.deposit(base+clampInt(int(s.cx), 0, acc.width-1), s, s.weight)
			continue
		}
		dy := (fy - s.cy) / s.ry
		if dy < -1 || dy > 1 {
			continue
		}
		x0 := clampInt(int(math.Floor(s.cx-s.rx)), 0, acc.width-1)
		x1 := clampInt(int(math.Floor(s.cx+s.rx)), 0, acc.width-1)
		for x := x0; x <= x1; x++ {
			dx := (float64(x) + 0.5 - s.cx) / s.rx
			f := Falloff(blur, 0.5*math.Hypot(dx, dy))
			if f <= 0 {
				continue
			}
			acc.deposit(base+x, s, s.weight*f)
		}
	}
}

func (acc *accumulator) deposit(cell int, s *splat, wgt float64) {
	acc.lum[cell] += wgt
	acc.rgb[cell*3] += s.r * wgt
	acc.rgb[cell*3+1] += s.g * wgt
	acc.rgb[cell*3+2] += s.b * wgt
}

// cell returns the blended colour and brightness of one grid cell.
func (acc *accumulator) cell(x, y int, exposure float64) (r, g, b, brightness float64) {
	i := y*acc.width + x
	lum := acc.lum[i]
	if lum <= 0 {
		return 0, 0, 0, 0
	}
	inv := 1 / lum
	brightness = 1 - math.Exp(-lum*exposure)
	return acc.rgb[i*3] * inv, acc.rgb[i*3+1] * inv, acc.rgb[i*3+2] * inv, brightness
}

// eachRow runs fn for every row on a pool of workers and waits for them.
func eachRow(height int, fn func(y int)) {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var wg sync.WaitGroup
	rowJobs := make(chan int, numWorkers)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rowJobs {
				fn(y)
			}
		}()
	}
	for y := 0; y < height; y++ {
		rowJobs <- y
	}
	close(rowJobs)
	wg.Wait()
}
