package metrics

import (
	"os"
	"path/filepath"
	"time"

	"media-converter/internal/logging"
)

// DirStats is a point-in-time usage summary of a directory.
type DirStats struct {
	Files int
	Bytes int64
}

// ScanDir totals the regular files directly inside dir. Subdirectories are not
// descended into; the work directory is flat.
func ScanDir(dir string) (DirStats, error) {
	var stats DirStats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info by a finishing job
			continue
		}
		stats.Files++
		stats.Bytes += info.Size()
	}

	return stats, nil
}

// Collector periodically samples the work directory so that leaked
// temporary files show up as a rising gauge.
type Collector struct {
	dir      string
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a new work directory collector
func NewCollector(dir string, interval time.Duration) *Collector {
	return &Collector{
		dir:      dir,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	stats, err := ScanDir(c.dir)
	if err != nil {
		logging.Warn("Failed to scan work directory %s: %v", filepath.Clean(c.dir), err)
		return
	}

	WorkDirFiles.Set(float64(stats.Files))
	WorkDirBytes.Set(float64(stats.Bytes))

	logging.Debug("Work directory collected: files=%d, bytes=%d", stats.Files, stats.Bytes)
}
