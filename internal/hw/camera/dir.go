package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cjeanneret/BallChaser/internal/debug"
	"github.com/cjeanneret/BallChaser/internal/logic/vision"
)

// DirSource replays image files from a directory as a camera stream.
type DirSource struct {
	Dir     string
	Pattern string  // glob, default "*"
	FPS     float64 // frames per second; <= 0 means as fast as possible
	Loop    bool    // restart from the first file after the last one
	Width   int     // rescale width, 0 keeps the file size
	Height  int     // rescale height, 0 keeps the file size
}

// Files returns the replay list, sorted by name.
func (s *DirSource) Files() ([]string, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	var files []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames matching %s in %s", pattern, s.Dir)
	}
	return files, nil
}

// Run emits each decodable file in order, paced at FPS.
// Files that fail to decode are skipped with a warning.
func (s *DirSource) Run(ctx context.Context, emit func(vision.Frame)) error {
	files, err := s.Files()
	if err != nil {
		return err
	}
	debug.Info("Replaying %d frames from %s (fps=%.1f, loop=%v)", len(files), s.Dir, s.FPS, s.Loop)

	var tick <-chan time.Time
	if s.FPS > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / s.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		emitted := 0
		for _, path := range files {
			if ctx.Err() != nil {
				return nil
			}
			if tick != nil {
				select {
				case <-ctx.Done():
					return nil
				case <-tick:
				}
			}

			f, err := s.load(path)
			if err != nil {
				debug.Warn("skipping frame %s: %v", path, err)
				continue
			}
			emit(f)
			emitted++
		}
		if !s.Loop {
			return nil
		}
		if emitted == 0 {
			return fmt.Errorf("no decodable frames in %s", s.Dir)
		}
	}
}

func (s *DirSource) load(path string) (vision.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return vision.Frame{}, err
	}
	defer fh.Close()

	f, format, err := Decode(fh, s.Width, s.Height)
	if err != nil {
		return vision.Frame{}, err
	}
	debug.Trace("Loaded %s (%s, %dx%d)", filepath.Base(path), format, f.Width, f.Height)
	return f, nil
}
