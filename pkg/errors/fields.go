package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// LogFields flattens err for a structured log line: the typed code, the
// wrapped chain by type and, for postgres failures, the SQLSTATE and the
// constraint or table involved. Row values in pg details are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"cause": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		fields["pg_code"] = pgErr.Code
		for key, value := range map[string]string{
			"pg_constraint": pgErr.ConstraintName,
			"pg_table":      pgErr.TableName,
			"pg_column":     pgErr.ColumnName,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
