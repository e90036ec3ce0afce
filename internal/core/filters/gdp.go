package filters

import "github.com/JonMunkholm/gathernomics/internal/core"

func init() {
	registerGDP()
}

// registerGDP covers table 36-10-0104: expenditure-based GDP, all industries.
// REF_DATE is always read as YYYY-MM even for annual descriptors.
func registerGDP() {
	core.Register(core.FilterDefinition{
		Key:   "gdp",
		Label: "Gross domestic product",
		Predicate: core.Predicate{
			columnNAICS:    core.Is("All industries"),
			columnSeasonal: core.Is(adjustedAnnual),
			columnPrices:   core.Is(chained2007),
		},
		Date: core.RefDateMonthly,
	})
}
