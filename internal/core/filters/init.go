// Package filters registers the StatsCan dataset filters with the core registry.
// Import this package for its side effects to make every filter resolvable by key.
package filters

// Each file uses init() to register the filters for one family of tables.

import "github.com/JonMunkholm/gathernomics/internal/core"

// Column values shared by several StatsCan tables.
const (
	geoCanada       = "Canada"
	bothSexes       = "Both sexes"
	chained2007     = "Chained (2007) dollars"
	adjustedAnnual  = "Seasonally adjusted at annual rates"
	adjusted        = "Seasonally adjusted"
	columnNAICS     = "North American Industry Classification System (NAICS)"
	columnSeasonal  = "Seasonal adjustment"
	columnPrices    = "Prices"
	columnSex       = "Sex"
	columnStatistic = "Statistics"
)

// canada restricts a predicate to national totals.
func canada(p core.Predicate) core.Predicate {
	p[core.ColumnGeo] = core.Is(geoCanada)
	return p
}
