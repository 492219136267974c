package scorer

import (
	"github.com/sells-group/zonefit/internal/desirability"
	"github.com/sells-group/zonefit/internal/metric"
)

// Dimension kinds reported by Catalog.
const (
	KindCategory  = "category"
	KindNumeric   = "numeric"
	KindWalkScore = "walkscore"
)

// DimensionInfo describes how a dimension is configured in a preferences
// file.
type DimensionInfo struct {
	Name    desirability.Dimension `json:"name"`
	Kind    string                 `json:"kind"`
	Targets []string               `json:"targets,omitempty"`
}

// Catalog lists every dimension in display order with the targets calc
// recognizes for category dimensions.
func Catalog(calc *metric.Calculator) []DimensionInfo {
	dims := desirability.Dimensions()
	out := make([]DimensionInfo, 0, len(dims))
	for _, d := range dims {
		info := DimensionInfo{Name: d, Kind: KindNumeric}
		switch {
		case d.Categorical():
			info.Kind = KindCategory
			info.Targets = keywordsFor(calc, d)
		case d.Scored():
			info.Kind = KindWalkScore
		}
		out = append(out, info)
	}
	return out
}
