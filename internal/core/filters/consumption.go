package filters

import "github.com/JonMunkholm/gathernomics/internal/core"

func init() {
	registerConsumption()
	registerConsumptionTax()
	registerEmploymentRate()
	registerWages()
	registerDisposableIncome()
	registerCredit()
}

func registerConsumption() {
	core.Register(core.FilterDefinition{
		Key:   "consumption",
		Label: "Household final consumption expenditure",
		Predicate: canada(core.Predicate{
			"Estimates":  core.Is("Final consumption expenditure"),
			columnPrices: core.Is(chained2007),
		}),
	})
}

func registerConsumptionTax() {
	core.Register(core.FilterDefinition{
		Key:   "consumption_tax",
		Label: "Total income taxes paid",
		Predicate: canada(core.Predicate{
			columnSex:                               core.Is(bothSexes),
			"Income taxes, deductions and benefits": core.Is("Total income taxes paid"),
			"Individuals and income":                core.Is("Dollar amount claimed on income tax form"),
		}),
	})
}

// Employment figures are published with a decimal component.
func registerEmploymentRate() {
	core.Register(core.FilterDefinition{
		Key:   "consumption_employment_rate",
		Label: "Unemployment",
		Predicate: canada(core.Predicate{
			columnSex:                      core.Is(bothSexes),
			"Labour force characteristics": core.Is("Unemployment"),
			"Age group":                    core.Is("15 years and over"),
			columnStatistic:                core.Is("Estimate"),
			"Data type":                    core.Is(adjusted),
		}),
		Value: core.DecimalValue,
	})
}

func registerWages() {
	core.Register(core.FilterDefinition{
		Key:   "consumption_wages",
		Label: "Average weekly earnings",
		Predicate: canada(core.Predicate{
			"Estimate":  core.Is("Average weekly earnings including overtime for all employees"),
			columnNAICS: core.Is("Industrial aggregate excluding unclassified businesses"),
		}),
		Value: core.DecimalValue,
	})
}

func registerDisposableIncome() {
	core.Register(core.FilterDefinition{
		Key:   "consumption_disposable_income",
		Label: "Household disposable income",
		Predicate: canada(core.Predicate{
			columnStatistic:                   core.Is("Value"),
			"Characteristics":                 core.Is("All households"),
			"Income, consumption and savings": core.Is("Household disposable income"),
		}),
	})
}

func registerCredit() {
	core.Register(core.FilterDefinition{
		Key:   "consumption_credit",
		Label: "Household credit",
		Predicate: canada(core.Predicate{
			"Type of credit": core.Is("Household credit"),
			columnSeasonal:   core.Is(adjusted),
		}),
	})
}
