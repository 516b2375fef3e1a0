package osiris

import (
	"path/filepath"
	"regexp"
	"time"
)

var runTagPattern = regexp.MustCompile(`(\d{8})_(\d{6})`)

// RunInfo identifies a data taking run.
type RunInfo struct {
	RunTag string
	Date   string
}

// ParseRunInfo extracts the YYYYMMDD_HHMMSS tag from a file name. The date is
// returned as YYYY-MM-DD. ok is false when the name carries no valid tag.
func ParseRunInfo(filename string) (info RunInfo, ok bool) {
	match := runTagPattern.FindStringSubmatch(filepath.Base(filename))
	if match == nil {
		return RunInfo{}, false
	}
	stamp, err := time.Parse("20060102_150405", match[0])
	if err != nil {
		return RunInfo{}, false
	}
	return RunInfo{RunTag: match[0], Date: stamp.Format("2006-01-02")}, true
}
