package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/pricebook"
	"github.com/google/subcommands"
)

type navCmd struct{}

func (*navCmd) Name() string     { return "nav" }
func (*navCmd) Synopsis() string { return "archive the latest mutual fund NAVs" }
func (*navCmd) Usage() string {
	return `pbk nav

  Downloads the AMFI NAV file and merges the NAVs of its latest date into the NAV archive.
`
}
func (*navCmd) SetFlags(f *flag.FlagSet) {}

func (*navCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	path := cfg.Path(cfg.Data.NAVHistory)
	n, err := pricebook.ArchiveNAV(ctx, newAMFI(cfg), path)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("archived %d NAV(s) into %s\n", n, path)
	return subcommands.ExitSuccess
}
