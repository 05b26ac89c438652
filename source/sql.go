package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/spektr-org/salesdash/schema"
)

// Drivers accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// OpenSQL opens a database/sql handle for one of the registered drivers.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases coherent.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// SQL runs Query and maps result columns to schema columns by header or key,
// so both `SELECT "Preço"` and `SELECT price` work. Temporal columns must come
// back as text in the schema layout.
type SQL struct {
	DB     *sql.DB
	Driver string
	Query  string
	Schema schema.Config
}

func (s *SQL) Name() string { return "sql:" + s.Driver }

// Close releases the database handle.
func (s *SQL) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQL) Load(ctx context.Context) (*Dataset, error) {
	sch := schemaOrDefault(s.Schema)

	rows, err := s.DB.QueryContext(ctx, s.Query)
	if err != nil {
		return nil, loadFailed(s.Name(), fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, loadFailed(s.Name(), err)
	}
	if err := checkHeaders(cols, sch); err != nil {
		return nil, loadFailed(s.Name(), err)
	}

	ds := &Dataset{Schema: sch}
	values := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			ds.Skipped++
			continue
		}
		fields := make(map[string]string, len(cols))
		for i, c := range cols {
			if values[i].Valid {
				fields[c] = values[i].String
			}
		}
		rec, err := buildRecord(sch, fields)
		if err != nil {
			ds.Skipped++
			continue
		}
		ds.records = append(ds.records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, loadFailed(s.Name(), err)
	}

	ds, err = finish(ds)
	if err != nil {
		return nil, loadFailed(s.Name(), err)
	}
	ds.Name = s.Name()
	return ds, nil
}
