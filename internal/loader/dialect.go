package loader

import (
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// dialect holds what differs between the supported destinations.
type dialect struct {
	driver   string
	realType string
	intType  string // Volume; must accept fractional values too
	numbered bool // $1, $2... instead of ?
	sqlite   bool
}

var dialects = map[string]dialect{
	"sqlite":   {driver: "sqlite", realType: "REAL", intType: "INTEGER", sqlite: true},
	"sqlite3":  {driver: "sqlite3", realType: "REAL", intType: "INTEGER", sqlite: true},
	"postgres": {driver: "postgres", realType: "DOUBLE PRECISION", intType: "NUMERIC", numbered: true},
}

// Drivers returns the supported driver names.
func Drivers() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver %q (want one of %s)", name, strings.Join(Drivers(), ", "))
	}
	return d, nil
}

func (d dialect) createTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
			Date         TEXT,
			Ticker       TEXT,
			Open         %[2]s,
			High         %[2]s,
			Low          %[2]s,
			Close        %[2]s,
			Volume       %[3]s,
			Daily_Return %[2]s,
			MA7          %[2]s,
			MA30         %[2]s,
			Volatility   %[2]s,
			PRIMARY KEY (Date, Ticker)
		)`, table, d.realType, d.intType)
}

func (d dialect) insert(table string, columns []string) string {
	marks := make([]string, len(columns))
	for i := range marks {
		if d.numbered {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ","))
}
