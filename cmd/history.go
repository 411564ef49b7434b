package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/renderer"
	"github.com/google/subcommands"
)

type historyCmd struct {
	id  string
	raw bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the recorded prices of an instrument" }
func (*historyCmd) Usage() string {
	return `pbk history -id <identifier> [-raw]

  Displays the price history of a single instrument.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "instrument identifier (ISIN)")
	f.BoolVar(&c.raw, "raw", false, "print raw Markdown")
}

func (c *historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "-id must be provided")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	h, err := pricebook.LoadPriceHistory(cfg.Path(cfg.Data.History))
	if err != nil {
		return fail(err)
	}
	series := h.Series(c.id)
	if series.Len() == 0 {
		return fail(fmt.Errorf("no price recorded for %s", c.id))
	}
	printMarkdown(renderer.HistoryMarkdown(c.id, series), c.raw)
	return subcommands.ExitSuccess
}
