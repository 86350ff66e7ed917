package gc

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
)

// Run periodically forces Go's garbage collector and returns freed pages to
// the OS. A soak run churns through millions of short-lived blocks between
// natural GC cycles; forcing collections on a fixed interval keeps RSS flat
// and makes a genuine block leak (allocated != freed while the harness is
// idle) visible within one interval instead of whenever GOGC next trips.
func Run(ctx context.Context, gcInterval, freeOSMemInterval time.Duration) {
	go func() {
		gcTicker := time.NewTicker(gcInterval)
		defer gcTicker.Stop()

		freeOSMemTicker := time.NewTicker(freeOSMemInterval)
		defer freeOSMemTicker.Stop()

		log.Info().Msgf(
			"[force-GC] running with gcInterval=%s, freeOsMemInterval=%s",
			gcInterval, freeOSMemInterval,
		)

		var lastAlloc uint64

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("[force-GC] stopped")
				return

			case <-gcTicker.C:
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)

				runtime.GC()

				log.Debug().Msgf(
					"[force-GC] forced GC pass (last GC pass at: %s, pause: %s)",
					time.Unix(0, int64(mem.LastGC)).Format(time.RFC3339Nano),
					lastGCPauseNs(mem.PauseNs),
				)

				lastAlloc = mem.Alloc
			case <-freeOSMemTicker.C:
				var mem runtime.MemStats
				runtime.ReadMemStats(&mem)

				if lastAlloc == 0 {
					lastAlloc = mem.Alloc
					continue
				}

				debug.FreeOSMemory() // madvise(DONTNEED) under the hood

				log.Info().Msgf(
					"[force-GC] forcing flush of freed memory to OS (alloc was %s, now %s)",
					fmtBytes(lastAlloc), fmtBytes(mem.Alloc),
				)

				lastAlloc = mem.Alloc
			}
		}
	}()
}

// fmtBytes formats a byte count to a human-readable string.
func fmtBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func lastGCPauseNs(pauses [256]uint64) time.Duration {
	for i := 255; i >= 0; i-- {
		if pauses[i] > 0 {
			return time.Duration(pauses[i])
		}
	}
	return 0
}
