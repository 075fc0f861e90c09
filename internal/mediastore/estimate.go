// Reports aggregate storage usage for the data directory.

package mediastore

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
)

// Estimate is a capacity snapshot for the whole data directory, not just
// the media store: it reflects everything the installation has written,
// matching what the console's memory gauge shows.
type Estimate struct {
	UsedMB  int `json:"used_mb"`
	QuotaMB int `json:"quota_mb"`
	Percent int `json:"percent"`
}

// Estimate reports rounded usage against the configured quota.
//
// Returns ok=false when no quota is configured or the data directory cannot
// be inspected. Read-only and cheap enough to call on every dashboard
// refresh.
func (s *Store) Estimate() (Estimate, bool) {
	if s.quota <= 0 {
		return Estimate{}, false
	}
	if _, err := os.Stat(s.dataDir); err != nil {
		return Estimate{}, false
	}
	var used int64
	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			// Entries that vanish mid-walk are skipped, not fatal.
			return nil
		}
		if info, err := d.Info(); err == nil {
			used += info.Size()
		}
		return nil
	})
	if err != nil {
		return Estimate{}, false
	}
	return Estimate{
		UsedMB:  int(math.Round(float64(used) / (1 << 20))),
		QuotaMB: int(math.Round(float64(s.quota) / (1 << 20))),
		Percent: int(math.Round(float64(used) / float64(s.quota) * 100)),
	}, true
}
