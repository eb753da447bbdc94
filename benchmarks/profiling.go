package benchmarks

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"runtime/pprof"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// startProfiling starts the cpu profile if requested. The returned function
// stops it and writes the heap profile.
func startProfiling(logger log.Logger) (func(), error) {
	var cpuFile *os.File
	if cpuprofile != "" {
		cpuProfPath := path.Join(saveFile, cpuprofile)
		level.Info(logger).Log("msg", "profiling cpu", "path", cpuProfPath)
		f, err := os.Create(cpuProfPath)
		if err != nil {
			return nil, fmt.Errorf("could not create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start cpu profile: %w", err)
		}
		cpuFile = f
	}

	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprofile == "" {
			return
		}
		memProfPath := path.Join(saveFile, memprofile)
		level.Info(logger).Log("msg", "profiling memory", "path", memProfPath)
		f, err := os.Create(memProfPath)
		if err != nil {
			level.Warn(logger).Log("msg", "could not create memory profile", "err", err)
			return
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			level.Warn(logger).Log("msg", "could not write memory profile", "err", err)
		}
	}, nil
}
