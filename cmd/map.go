package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/pricebook/mapper"
	"github.com/google/subcommands"
)

type mapCmd struct {
	master string
	out    string
}

func (*mapCmd) Name() string     { return "map" }
func (*mapCmd) Synopsis() string { return "build the symbol map from an ISIN master list" }
func (*mapCmd) Usage() string {
	return `pbk map -master <file.csv> [-o <file.csv>]

  Reads an ISIN master list (ISIN,Name,liq_status,Type) and writes the symbol map.
  Equities (EQ) get a symbol guessed from their name, kept only if Yahoo knows it.
  Funds (MF) get their AMFI scheme code.
`
}

func (c *mapCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.master, "master", "", "ISIN master list")
	f.StringVar(&c.out, "o", "", "output file (defaults to the configured symbol map)")
}

func (c *mapCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.master == "" {
		fmt.Fprintln(os.Stderr, "-master must be provided")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	file, err := os.Open(c.master)
	if err != nil {
		return fail(err)
	}
	entries, err := mapper.ReadMaster(file)
	file.Close()
	if err != nil {
		return fail(err)
	}

	b := &mapper.Builder{
		Equities:    newYahoo(cfg),
		Funds:       newAMFI(cfg),
		Suffix:      cfg.Yahoo.Suffix,
		Concurrency: cfg.Yahoo.Concurrency,
	}
	m, stats := b.Build(ctx, entries)

	out := c.out
	if out == "" {
		out = cfg.Path(cfg.Data.SymbolMap)
	}
	if err := m.Save(out); err != nil {
		return fail(err)
	}
	fmt.Printf("mapped %d equities and %d funds out of %d entries into %s (%d unmatched)\n",
		stats.Equities, stats.Funds, stats.Entries, out, stats.Unmatched)
	return subcommands.ExitSuccess
}
