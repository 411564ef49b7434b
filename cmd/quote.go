package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pricebook/renderer"
	"github.com/google/subcommands"
)

type quoteCmd struct {
	raw bool
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch live quotes without recording them" }
func (*quoteCmd) Usage() string {
	return `pbk quote [-raw] <symbol>...

  Fetches quotes from the bulk API, then single quotes for the symbols it did not return.
  Nothing is written.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print raw Markdown")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one symbol expected")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	client := newYahoo(cfg)
	symbols := f.Args()
	quotes := client.BulkQuotes(ctx, symbols)
	for _, s := range symbols {
		if _, ok := quotes[s]; ok {
			continue
		}
		if q, ok := client.Quote(ctx, s); ok {
			quotes[s] = q
		}
	}
	printMarkdown(renderer.QuotesMarkdown(symbols, quotes), c.raw)
	return subcommands.ExitSuccess
}
