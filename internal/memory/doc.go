// Package memory keeps the converter inside its container memory limit.
//
// ffmpeg runs as a child process, so its memory is accounted to the same
// cgroup as the server but is invisible to the Go runtime. [ConfigureFromEnv]
// therefore gives the Go heap only part of the container limit:
//
//   - GOMEMLIMIT: standard runtime variable; takes precedence when set
//   - MEMORY_LIMIT: container limit in bytes, usually from the Downward API
//   - MEMORY_RATIO: fraction of MEMORY_LIMIT for the heap (default 0.5)
//
// A [Monitor] samples heap usage and, through a [Gate], holds new
// conversions back while usage sits above the critical watermark:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// Conversions already running are never interrupted.
package memory
