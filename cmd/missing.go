package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/renderer"
	"github.com/google/subcommands"
)

type missingCmd struct {
	clear string
	raw   bool
}

func (*missingCmd) Name() string     { return "missing" }
func (*missingCmd) Synopsis() string { return "list or clear suppressed instruments" }
func (*missingCmd) Usage() string {
	return `pbk missing [-clear <id>,<id>...] [-raw]

  Lists the missing-quote log. Every instrument in it is skipped by pbk update.
  Use -clear to remove the records of some identifiers so that they are retried.
`
}

func (c *missingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.clear, "clear", "", "comma separated identifiers to remove from the log")
	f.BoolVar(&c.raw, "raw", false, "print raw Markdown")
}

func (c *missingCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	log, err := pricebook.LoadMissingLog(cfg.Path(cfg.Data.Missing))
	if err != nil {
		return fail(err)
	}

	if c.clear != "" {
		var ids []string
		for _, id := range strings.Split(c.clear, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		n, err := log.Clear(ids...)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stderr, "removed %d record(s) from %s\n", n, log.Path())
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.MissingMarkdown(slices.Collect(log.All())), c.raw)
	return subcommands.ExitSuccess
}
