package sqldriver

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/cosmotype/cosmotype/driver"
	"github.com/cosmotype/cosmotype/field"
)

// OpenPostgres connects to a PostgreSQL DSN through lib/pq and returns a
// ready SQLDriver with the Postgres converter table installed.
func OpenPostgres(dsn string) (*SQLDriver, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: postgres dsn: %w", err)
	}
	d := New(Postgres, sql.OpenDB(connector))
	RegisterPostgresConverters(d.Types())
	return d, nil
}

// OpenMySQL connects through go-sql-driver/mysql using cfg and returns a
// ready SQLDriver with the MySQL converter table installed.
func OpenMySQL(cfg *mysql.Config) (*SQLDriver, error) {
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("sqldriver: mysql config: %w", err)
	}
	d := New(MySQL, sql.OpenDB(connector))
	RegisterMySQLConverters(d.Types())
	return d, nil
}

// RegisterPostgresConverters installs Postgres-flavored dump/load pairs:
// list values ride through pq.Array so they land as native Postgres
// arrays, json values as jsonb text.
func RegisterPostgresConverters(reg *driver.ConverterRegistry) {
	reg.Register(field.KindList, driver.Converter{
		Dump: func(v any) (any, error) {
			items, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("list value is %T, want []any", v)
			}
			return pq.Array(items), nil
		},
		Load: func(raw any) (any, error) { return raw, nil },
	})
	reg.Register(field.KindJSON, jsonTextConverter())
	reg.Register(field.KindTime, timeOfDayConverter("15:04:05.999999"))
}

// RegisterMySQLConverters installs MySQL-flavored dump/load pairs: lists
// have no native MySQL type, so they serialize as JSON text; temporal
// values format as DATETIME-compatible strings.
func RegisterMySQLConverters(reg *driver.ConverterRegistry) {
	reg.Register(field.KindList, jsonTextConverter())
	reg.Register(field.KindJSON, jsonTextConverter())
	reg.Register(field.KindTimestamp, driver.Converter{
		Dump: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return v, nil
			}
			return t.Format("2006-01-02 15:04:05.999999"), nil
		},
		Load: func(raw any) (any, error) {
			s, ok := raw.(string)
			if !ok {
				return raw, nil
			}
			return time.Parse("2006-01-02 15:04:05.999999", s)
		},
	})
	reg.Register(field.KindTime, timeOfDayConverter("15:04:05"))
}

// jsonTextConverter round-trips a composite value through JSON text. An
// empty object or array stays an explicit literal ("{}", "[]") rather
// than degrading to NULL, so empty composites survive engines that
// reject empty updates.
func jsonTextConverter() driver.Converter {
	return driver.Converter{
		Dump: func(v any) (any, error) {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			return string(raw), nil
		},
		Load: func(raw any) (any, error) {
			s, ok := raw.(string)
			if !ok {
				return raw, nil
			}
			var out any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}

// timeOfDayConverter formats time-of-day values with layout, pinning the
// date component to the epoch on load so time columns round-trip per the
// cross-driver contract.
func timeOfDayConverter(layout string) driver.Converter {
	return driver.Converter{
		Dump: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return v, nil
			}
			return t.Format(layout), nil
		},
		Load: func(raw any) (any, error) {
			s, ok := raw.(string)
			if !ok {
				return raw, nil
			}
			t, err := time.Parse(layout, s)
			if err != nil {
				return nil, err
			}
			return time.Date(1970, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		},
	}
}
