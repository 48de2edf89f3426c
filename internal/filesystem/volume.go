package filesystem

import (
	"path/filepath"
	"sort"
	"strings"
)

const unknownVolume = "unknown"

// VolumeResolver labels paths with the configured directory they live in.
// The deepest matching root wins.
type VolumeResolver struct {
	roots []volumeRoot
}

type volumeRoot struct {
	dir  string
	name string
}

// NewVolumeResolver creates a resolver from volume name to directory. Empty
// directories are ignored.
//
//	NewVolumeResolver(map[string]string{
//	    "work":   "/tmp/media-converter",
//	    "output": "/srv/converted",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	vr := &VolumeResolver{}
	for name, dir := range volumes {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		vr.roots = append(vr.roots, volumeRoot{dir: filepath.Clean(dir), name: name})
	}
	sort.Slice(vr.roots, func(i, j int) bool {
		return len(vr.roots[i].dir) > len(vr.roots[j].dir)
	})
	return vr
}

// Resolve returns the volume label for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return unknownVolume
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return unknownVolume
	}
	for _, root := range vr.roots {
		rel, err := filepath.Rel(root.dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return root.name
		}
	}
	return unknownVolume
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver installs the resolver used when a RetryConfig
// does not carry its own. Call it once at startup.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}
