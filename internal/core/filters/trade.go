package filters

import (
	"strings"

	"github.com/JonMunkholm/gathernomics/internal/core"
)

const columnTrade = "Trade"

func init() {
	registerImportExport()
}

// registerImportExport splits merchandise trade into two series keyed by the
// lower-cased Trade value: "import" and "export".
func registerImportExport() {
	core.Register(core.FilterDefinition{
		Key:   "import_export",
		Label: "Merchandise imports and exports",
		Predicate: canada(core.Predicate{
			columnSeasonal:               core.Is(adjusted),
			"Basis":                      core.Is("Balance of payments"),
			"Principal trading partners": core.Is("Total of all merchandise"),
			columnTrade:                  core.OneOf("Import", "Export"),
		}),
		Indicator: tradeDirection,
		Category:  tradeDirection,
		Value:     core.DecimalValue,
		Date:      core.RefDateMonthly,
	})
}

func tradeDirection(row core.Row, _ core.TableDescriptor) string {
	return strings.ToLower(row[columnTrade])
}
