package monitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Monitor watches process memory while a composition runs and keeps the
// intermediate pass files in the work dir from piling up. It is advisory:
// it reduces peak usage but never aborts the run.
type Monitor struct {
	CeilingMB uint64
	Interval  time.Duration
}

func New(ceilingMB uint64) *Monitor {
	return &Monitor{
		CeilingMB: ceilingMB,
		Interval:  2 * time.Second,
	}
}

// Guard runs fn while sampling RSS, flushing older intermediates from
// workDir whenever usage crosses the ceiling. The work dir is removed on
// every exit path, including failures — the final artifact must never be
// written inside it.
func (m *Monitor) Guard(ctx context.Context, workDir string, fn func(context.Context) error) error {
	before := rssMB()
	log.Printf("[monitor] Composition starting (RSS %.1f MB, ceiling %d MB)", before, m.CeilingMB)

	sampleCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.sample(sampleCtx, workDir)
	}()

	defer func() {
		stop()
		<-done
		if err := os.RemoveAll(workDir); err != nil {
			log.Printf("[monitor] Warning: could not remove work dir %s: %v", workDir, err)
		}
		log.Printf("[monitor] Composition done (RSS %.1f → %.1f MB, work dir cleaned)", before, rssMB())
	}()

	return fn(ctx)
}

func (m *Monitor) sample(ctx context.Context, workDir string) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rss := rssMB()
			if m.CeilingMB > 0 && rss > float64(m.CeilingMB) {
				log.Printf("[monitor] RSS %.1f MB over ceiling %d MB — flushing intermediates", rss, m.CeilingMB)
				flushIntermediates(workDir)
			}
		}
	}
}

// flushIntermediates deletes all but the two newest files in the work dir.
// The newest file is the pass currently being written and the one before
// it is that pass's input; everything older is already consumed.
func flushIntermediates(workDir string) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return
	}
	type aged struct {
		path string
		mod  time.Time
	}
	var files []aged
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, aged{filepath.Join(workDir, e.Name()), info.ModTime()})
	}
	if len(files) <= 2 {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	for _, f := range files[2:] {
		if err := os.Remove(f.path); err == nil {
			log.Printf("[monitor] Flushed %s", f.path)
		}
	}
}

func rssMB() float64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := p.MemoryInfo()
	if err != nil || mem == nil {
		return 0
	}
	return float64(mem.RSS) / 1024 / 1024
}
