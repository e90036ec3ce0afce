package store

import (
	"context"
	"fmt"
	"log/slog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_source_tables",
		SQL: `CREATE TABLE IF NOT EXISTS source_tables (
  table_id    BIGSERIAL PRIMARY KEY,
  name        TEXT      NOT NULL UNIQUE,
  type        TEXT      NOT NULL,
  last_update DATE
);`,
	},
	{
		Name: "create_table_financial_factors",
		SQL: `CREATE TABLE IF NOT EXISTS financial_factors (
  factor_id     BIGSERIAL PRIMARY KEY,
  fiscal_value  BIGINT    NOT NULL,
  frequency     TEXT      NOT NULL,
  indicator     TEXT      NOT NULL,
  main_category TEXT      NOT NULL,
  date          DATE      NOT NULL,
  table_id      BIGINT    NOT NULL REFERENCES source_tables (table_id),
  UNIQUE (indicator, main_category, date)
);`,
	},
	{
		Name: "create_index_financial_factors_table_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_financial_factors_table_id ON financial_factors (table_id);`,
	},
}

// Migrate creates the schema if it does not exist. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, step := range steps {
		if _, err := s.db.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", step.Name, err)
		}
		slog.Debug("migration applied", "step", step.Name)
	}
	return nil
}
