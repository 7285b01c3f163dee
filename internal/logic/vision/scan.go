// Package vision finds target-colored pixels in a horizontal band of a frame
// and sorts them into left, forward and right regions.
package vision

// Region is one of the three vertical thirds of a frame.
type Region int

const (
	Left Region = iota
	Forward
	Right
)

func (r Region) String() string {
	switch r {
	case Left:
		return "left"
	case Forward:
		return "forward"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// RegionCounts holds the number of target pixels found in each region.
type RegionCounts struct {
	Left    int `json:"left"`
	Forward int `json:"forward"`
	Right   int `json:"right"`
}

// Total returns the number of target pixels across all regions.
func (c RegionCounts) Total() int {
	return c.Left + c.Forward + c.Right
}

// ScanConfig holds the scanner thresholds.
type ScanConfig struct {
	WhiteLevel byte `json:"white_level"` // sample value every channel must equal
	BandRows   int  `json:"band_rows"`   // height of the scanned band, centered on the middle row
}

// DefaultScanConfig matches a pure white target and a 6-row band.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{WhiteLevel: 255, BandRows: 6}
}

// Classify maps a column to its region.
//
// Column w/3 falls into Left, not Forward: right takes c >= 2*(w/3), forward
// only the strict interior. Steering at that exact column depends on it.
func Classify(column, width int) Region {
	third := width / 3
	switch {
	case column >= third*2:
		return Right
	case column > third && column < third*2:
		return Forward
	default:
		return Left
	}
}

// Scan counts target pixels in the frame's center band.
// It returns the counts and the number of rows actually scanned.
func Scan(f Frame, cfg ScanConfig) (RegionCounts, int, error) {
	var counts RegionCounts
	if err := f.Validate(); err != nil {
		return counts, 0, err
	}

	top, bottom := Band(f.Height, cfg.BandRows)
	w := cfg.WhiteLevel
	for row := top; row < bottom; row++ {
		offset := row * f.Width * BytesPerPixel
		for col := 0; col < f.Width; col++ {
			i := offset + col*BytesPerPixel
			if f.Pixels[i] != w || f.Pixels[i+1] != w || f.Pixels[i+2] != w {
				continue
			}
			switch Classify(col, f.Width) {
			case Right:
				counts.Right++
			case Forward:
				counts.Forward++
			default:
				counts.Left++
			}
		}
	}
	return counts, bottom - top, nil
}
