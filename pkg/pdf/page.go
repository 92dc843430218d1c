package pdf

import (
	"strings"
)

// Paper sizes in inches.
var paperSizes = map[string][2]float64{
	"a4":     {8.27, 11.69},
	"a5":     {5.83, 8.27},
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
}

const mmPerInch = 25.4

// PageSettings describes the printed page.
type PageSettings struct {
	Size      string  // a4, a5, letter, legal
	MarginMM  float64 // applied to all four edges
	Landscape bool
}

// DefaultPageSettings returns A4 portrait with 15mm margins.
func DefaultPageSettings() PageSettings {
	return PageSettings{Size: "a4", MarginMM: 15}
}

// PageSettingsFromMetadata reads page_size, margin_mm and landscape from template
// front matter. Unknown or missing values keep their defaults.
func PageSettingsFromMetadata(meta map[string]any) PageSettings {
	ps := DefaultPageSettings()
	if meta == nil {
		return ps
	}

	if v, ok := meta["page_size"].(string); ok {
		if _, known := paperSizes[strings.ToLower(v)]; known {
			ps.Size = strings.ToLower(v)
		}
	}

	switch v := meta["margin_mm"].(type) {
	case int:
		if v >= 0 {
			ps.MarginMM = float64(v)
		}
	case float64:
		if v >= 0 {
			ps.MarginMM = v
		}
	}

	if v, ok := meta["landscape"].(bool); ok {
		ps.Landscape = v
	}

	return ps
}

// dimensions returns paper width, height and margin in inches.
func (p PageSettings) dimensions() (width, height, margin float64) {
	size, ok := paperSizes[strings.ToLower(p.Size)]
	if !ok {
		size = paperSizes["a4"]
	}
	width, height = size[0], size[1]
	if p.Landscape {
		width, height = height, width
	}
	return width, height, p.MarginMM / mmPerInch
}
