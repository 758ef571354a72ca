package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultDepths are the depth thresholds used when none are configured.
var DefaultDepths = DepthBins{0, 3, 6, 10, 20, 50, 100, 200, 350, 500}

// DepthBins is a strictly increasing sequence of depth thresholds in metres.
//
// Bin i covers [d[i], d[i+1]); the last bin is open-ended. Depths shallower
// than d[0] (drying heights) belong to the first bin.
type DepthBins []float64

// Validate checks that the bins are non-empty, finite and strictly increasing.
func (d DepthBins) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("depth bins must not be empty")
	}
	for _, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("depth bins must be finite, got %g", v)
		}
	}
	for i := 1; i < len(d); i++ {
		if d[i] <= d[i-1] {
			return fmt.Errorf("depth bins must be strictly increasing: %g follows %g", d[i], d[i-1])
		}
	}
	return nil
}

// Index returns the bin a minimum depth belongs to.
func (d DepthBins) Index(depth float64) int {
	for i := len(d) - 1; i > 0; i-- {
		if depth >= d[i] {
			return i
		}
	}
	return 0
}

// Lower returns the lower bound of bin i.
func (d DepthBins) Lower(i int) float64 {
	return d[i]
}

// Label returns a human readable bin label such as "3-6m" or "500m+".
func (d DepthBins) Label(i int) string {
	if i == len(d)-1 {
		return formatDepth(d[i]) + "m+"
	}
	return formatDepth(d[i]) + "-" + formatDepth(d[i+1]) + "m"
}

// Signature returns a stable textual form used for cache keys and manifests.
func (d DepthBins) Signature() string {
	parts := make([]string, len(d))
	for i, v := range d {
		parts[i] = formatDepth(v)
	}
	return strings.Join(parts, ",")
}

// Equal reports whether two bin sets are identical.
func (d DepthBins) Equal(other DepthBins) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}

// ParseDepths parses a comma separated list such as "0,3,6,10".
func ParseDepths(s string) (DepthBins, error) {
	var bins DepthBins
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("parse depth %q: %w", field, err)
		}
		bins = append(bins, v)
	}
	if err := bins.Validate(); err != nil {
		return nil, err
	}
	return bins, nil
}

func formatDepth(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
