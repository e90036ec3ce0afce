// Package core provides the business logic for normalizing StatsCan tables.
//
// The package is independent of any transport or storage layer. It can be
// used by the pipeline, CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Table Descriptors: configuration entries naming a table to fetch and the
//     labels attached to its records.
//   - Filter Definitions: registered via the registry, each describes which
//     rows of a table qualify and how to map them to a [Record].
//   - Streams: lazy, single-pass readers that apply a definition to a CSV.
//
// # Filter Registry
//
// Filters are registered at init time using [Register]:
//
//	core.Register(core.FilterDefinition{
//	    Key:   "gdp",
//	    Label: "Gross domestic product",
//	    Predicate: core.Predicate{
//	        "Prices": core.Is("Chained (2007) dollars"),
//	    },
//	    Date: core.RefDateMonthly,
//	})
//
// Descriptors reference filters by key through their data_filter field.
//
// # Normalization
//
// A row produces a record only when every predicate column is present with an
// accepted value and VALUE, SCALAR_FACTOR and REF_DATE exist. Values are
// coerced leniently: anything non-numeric becomes zero before scaling by
// SCALAR_FACTOR. Rows whose REF_DATE does not parse for the table's frequency
// are dropped. [Stats] counts every outcome.
package core
