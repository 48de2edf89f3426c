/*
Package workers sizes and bounds the transcoder worker pool.

# Sizing

When running in a container the number of usable CPUs may be limited by
cgroup constraints. runtime.NumCPU() still returns the host count, while
GOMAXPROCS follows the container limit (Go 1.19+), so the helpers here are
based on GOMAXPROCS:

	// One ffmpeg per available CPU, at most 8
	n := workers.ForCPU(8)

	// Custom ratio
	n := workers.Count(1.5, 12)

The CONVERT_WORKERS environment variable overrides the calculation:

	env:
	- name: CONVERT_WORKERS
	  value: "2"

ffmpeg already spreads one encode over several threads, so running more
processes than CPUs only adds context switching and memory pressure.

# Limiting

A [Limiter] hands out that many slots. The orchestrator acquires one after
the inputs are on disk and releases it as soon as ffmpeg exits:

	release, err := limiter.Acquire(ctx)
	if err != nil {
		return err // ctx canceled while queued
	}
	defer release()

Slot usage and queueing time are exported as Prometheus metrics.
*/
package workers
