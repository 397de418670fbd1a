package command

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/posener/complete"
	"github.com/sirupsen/logrus"

	"github.com/avylen/sqliteengine/internal/storage"
)

// InspectCommand opens a database file and dumps its schema table plus a
// row count per table, the read-only half of spec §1's "tiny
// command-line program that opens a database file and dumps its schema".
type InspectCommand struct {
	Out io.Writer // defaults to a colorable stdout when nil
}

func (c *InspectCommand) Help() string {
	helpText := `
Usage: sqlitekit inspect [options]

Options:

	-config=""	Configuration file naming the database to open
	-db=""		Database file path, overrides the config file's db field
`
	return strings.TrimSpace(helpText)
}

func (c *InspectCommand) Synopsis() string {
	return "Dumps schema objects and row counts for a database file"
}

func (c *InspectCommand) Run(args []string) int {
	var configPath, dbPath string

	cmdFlags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	cmdFlags.StringVar(&configPath, "config", "", "config file")
	cmdFlags.StringVar(&dbPath, "db", "", "database file")
	if err := cmdFlags.Parse(args); err != nil {
		return 1
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.WithError(err).Error("failed to load config")
			return 1
		}
		if dbPath == "" {
			dbPath = cfg.DB
		}
		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logrus.SetLevel(lvl)
		}
	}
	if dbPath == "" {
		fmt.Fprintln(c.out(), "Error: -db (or a config file's db field) is required")
		return 1
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		log.WithError(err).Error("failed to open database")
		return 1
	}

	rows, err := scanSchema(db)
	if err != nil {
		log.WithError(err).Error("failed to scan schema")
		return 1
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	out := c.out()
	for _, row := range rows {
		count, err := countRows(db, row)
		if err != nil {
			log.WithError(err).WithField("name", row.Name).Warn("failed to count rows")
			fmt.Fprintf(out, "%-10s %-20s rootpage=%-6d rows=?    %s\n", row.Type, row.Name, row.RootPage, row.SQL)
			continue
		}
		fmt.Fprintf(out, "%-10s %-20s rootpage=%-6d rows=%-6d %s\n", row.Type, row.Name, row.RootPage, count, row.SQL)
	}
	return 0
}

func (c *InspectCommand) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return colorable.NewColorableStdout()
}

// scanSchema walks the schema table directly via a table iterator: the
// CLI has no fixed record type to bind schema.Table[T] to, since it
// inspects arbitrary databases, so it reads sqlite_schema's raw cells
// the way internal/storage/schemacache.go does.
func scanSchema(db *storage.Database) ([]storage.SchemaRow, error) {
	it, err := storage.NewTableIterator(db, 1, nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []storage.SchemaRow
	for entry := it.Next(); entry != nil; entry = it.Next() {
		if entry.Err != nil {
			return nil, entry.Err
		}
		values, err := storage.DecodeRecord(entry.Payload)
		if err != nil {
			return nil, err
		}
		if len(values) < 4 {
			continue
		}
		typ, _ := values[0].AsText()
		name, _ := values[1].AsText()
		tblName, _ := values[2].AsText()
		rootPage, _ := values[3].AsInt()
		var sql string
		if len(values) > 4 {
			sql, _ = values[4].AsText()
		}
		rows = append(rows, storage.SchemaRow{
			Type:     typ,
			Name:     name,
			TblName:  tblName,
			RootPage: int(rootPage),
			SQL:      sql,
		})
	}
	return rows, nil
}

// countRows only makes sense for row-id tables: indexes, views, and
// triggers either have no independent row count or no B-tree at all.
func countRows(db *storage.Database, row storage.SchemaRow) (int, error) {
	if row.Type != "table" {
		return 0, nil
	}
	it, err := storage.NewTableIterator(db, row.RootPage, nil, nil)
	if err != nil {
		return 0, err
	}
	n := 0
	for entry := it.Next(); entry != nil; entry = it.Next() {
		if entry.Err != nil {
			return 0, entry.Err
		}
		n++
	}
	return n, nil
}

// AutocompleteFlags registers shell-completion predictors for inspect's
// flags, the posener/complete wiring mitchellh/cli dispatches to when
// the CLI's Autocomplete mode is enabled.
func (c *InspectCommand) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-config": complete.PredictFiles("*.yaml"),
		"-db":     complete.PredictFiles("*.db"),
	}
}

func (c *InspectCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}
