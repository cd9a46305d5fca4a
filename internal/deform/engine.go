package deform

import (
	"runtime"
	"sync"

	"github.com/guidoenr/spherizer/internal/noise"
	"github.com/guidoenr/spherizer/internal/particle"
)

// chunkSize is how many particles one worker job covers.
const chunkSize = 512

// Engine runs the deformation pass over a whole cloud.
type Engine struct {
	field   noise.Field
	workers int
}

// NewEngine creates an Engine. workers <= 0 uses GOMAXPROCS.
func NewEngine(field noise.Field, workers int) *Engine {
	if field == nil {
		field = noise.NewValue()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{field: field, workers: workers}
}

// Field returns the noise backend driving ambient motion.
func (e *Engine) Field() noise.Field { return e.field }

// Frame writes every particle's render attributes into out, resizing it to the cloud.
// It blocks until the whole cloud is written.
func (e *Engine) Frame(cloud *particle.Cloud, in FrameInputs, out *particle.Buffers) {
	n := cloud.Len()
	out.Resize(n)
	if n == 0 {
		return
	}
	frame := resolve(in)

	chunks := (n + chunkSize - 1) / chunkSize
	workers := e.workers
	if workers > chunks {
		workers = chunks
	}
	if workers <= 1 {
		e.run(cloud, frame, out, 0, n)
		return
	}

	var wg sync.WaitGroup
	jobs := make(chan int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for start := range jobs {
				end := start + chunkSize
				if end > n {
					end = n
				}
				e.run(cloud, frame, out, start, end)
			}
		}()
	}
	for start := 0; start < n; start += chunkSize {
		jobs <- start
	}
	close(jobs)
	wg.Wait()
}

func (e *Engine) run(cloud *particle.Cloud, frame resolved, out *particle.Buffers, start, end int) {
	for i := start; i < end; i++ {
		s := evaluate(e.field, cloud.At(i), frame)
		out.Set(i, s.Position, s.Color, s.Size, s.Alpha)
	}
}
