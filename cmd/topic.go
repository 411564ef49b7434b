package cmd

import (
	"context"
	"flag"

	"github.com/etnz/pricebook/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	raw bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "display a documentation topic" }
func (*topicCmd) Usage() string {
	return `pbk topic [-raw] [<topic>...]

  Displays documentation topics. Without argument, lists them.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print raw Markdown")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		printMarkdown(docs.Index(), c.raw)
		return subcommands.ExitSuccess
	}
	content, err := docs.GetTopics(f.Args()...)
	if err != nil {
		return fail(err)
	}
	printMarkdown(content, c.raw)
	return subcommands.ExitSuccess
}
