package filters

import "github.com/JonMunkholm/gathernomics/internal/core"

func init() {
	registerGovExp()
}

func registerGovExp() {
	core.Register(core.FilterDefinition{
		Key:   "govexp",
		Label: "Consolidated government expense",
		Predicate: canada(core.Predicate{
			"Government sectors": core.Is("Consolidated government"),
			"Statement of government operations and balance sheet": core.Is("Expense"),
		}),
		Date: core.RefDateMonthly,
	})
}
