package command

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/posener/complete"
	"github.com/sirupsen/logrus"

	"github.com/avylen/sqliteengine/internal/storage"
	"github.com/avylen/sqliteengine/schema"
)

// note is the fixed record type CreateCommand exercises: the writer's
// smoke test needs a concrete schema.RowRecord, and a single hardcoded
// table shape is enough to exercise CreateTable/Insert/SaveAs end to
// end (§4.10's bootstrapping insertion strategy).
type note struct {
	RowID int64
	Body  string
}

func (*note) SchemaType() string { return "table" }
func (*note) SchemaName() string { return "notes" }

func (n *note) SetRowID(id int64) { n.RowID = id }

func (n *note) RowValues() []storage.Value {
	return []storage.Value{storage.TextValue(n.Body)}
}

func (n *note) ScanRow(values []storage.Value) error {
	if len(values) < 1 {
		return nil
	}
	body, _ := values[0].AsText()
	n.Body = body
	return nil
}

// CreateCommand formats a fresh database, creates the "notes" table, and
// inserts the bodies given as positional arguments — a smoke test for
// the writer path spec §4.5/§4.10 describe, run from the command line
// rather than a test binary.
type CreateCommand struct {
	Out io.Writer
}

func (c *CreateCommand) Help() string {
	helpText := `
Usage: sqlitekit create [options] <body> [<body> ...]

Options:

	-config=""	Configuration file naming the output database path
	-db=""		Output database file path, overrides the config file's db field

Each positional argument becomes one row in a freshly created "notes"
table.
`
	return strings.TrimSpace(helpText)
}

func (c *CreateCommand) Synopsis() string {
	return "Creates a database file with a notes table populated from arguments"
}

func (c *CreateCommand) Run(args []string) int {
	var configPath, dbPath string

	cmdFlags := flag.NewFlagSet("create", flag.ContinueOnError)
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
	}
	if dbPath == "" {
		fmt.Fprintln(c.out(), "Error: -db (or a config file's db field) is required")
		return 1
	}

	bodies := cmdFlags.Args()

	db := storage.New()
	tx, err := storage.BeginTransaction(db)
	if err != nil {
		log.WithError(err).Error("failed to begin transaction")
		return 1
	}
	defer tx.Abort()

	if _, err := schema.CreateTable[note](tx, "CREATE TABLE notes (body TEXT)"); err != nil {
		log.WithError(err).Error("failed to create notes table")
		return 1
	}

	wh, err := schema.TableForWrite[note](tx)
	if err != nil {
		log.WithError(err).Error("failed to open notes table for write")
		return 1
	}
	for _, body := range bodies {
		if _, err := wh.Insert(note{Body: body}); err != nil {
			log.WithError(err).Error("failed to insert row")
			return 1
		}
	}

	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("failed to commit transaction")
		return 1
	}

	if err := db.SaveAs(dbPath); err != nil {
		log.WithError(err).Error("failed to save database")
		return 1
	}

	fmt.Fprintf(c.out(), "wrote %d rows to %s\n", len(bodies), dbPath)
	return 0
}

func (c *CreateCommand) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return colorable.NewColorableStdout()
}

func (c *CreateCommand) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-config": complete.PredictFiles("*.yaml"),
		"-db":     complete.PredictFiles("*.db"),
	}
}

func (c *CreateCommand) AutocompleteArgs() complete.Predictor {
	return complete.PredictAnything
}
