package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/etnz/pricebook"
	"github.com/etnz/pricebook/config"
	"github.com/etnz/pricebook/date"
	"github.com/etnz/pricebook/events"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/metrics"
	"github.com/etnz/pricebook/pgsink"
	"github.com/etnz/pricebook/renderer"
	"github.com/google/subcommands"
)

type updateCmd struct {
	day string
	raw bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "price every mapped instrument and append to the price history" }
func (*updateCmd) Usage() string {
	return `pbk update [-d <date>] [-raw]

  Prices every instrument of the symbol map that is not suppressed, falling back
  from the bulk quote API to single quotes for equities and using the AMFI NAV file
  for funds. Prices are merged into the price history and unpriced instruments into
  the missing-quote log, which suppresses them on the next runs.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.day, "d", "", "run date (defaults to today in the market time zone)")
	f.BoolVar(&c.raw, "raw", false, "print the report as raw Markdown")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "no arguments expected")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}

	on := date.Of(time.Now().In(cfg.MarketLocation()))
	if c.day != "" {
		if on, err = date.Parse(c.day); err != nil {
			fmt.Fprintf(os.Stderr, "invalid date %q: %v\n", c.day, err)
			return subcommands.ExitUsageError
		}
	}

	quotes := newYahoo(cfg)
	u := &pricebook.Updater{
		Reconciler: &pricebook.Reconciler{
			Bulk:       quotes,
			Individual: quotes,
			NAV:        newAMFI(cfg),
			Chains:     pricebook.DefaultChains,
			Date:       on,
		},
		SymbolMapPath: cfg.Path(cfg.Data.SymbolMap),
		HistoryPath:   cfg.Path(cfg.Data.History),
		MissingPath:   cfg.Path(cfg.Data.Missing),
	}

	if cfg.Postgres.URL != "" {
		sink, pool, err := pgsink.Open(ctx, cfg.Postgres.URL, cfg.Postgres.Table)
		if err != nil {
			return fail(err)
		}
		defer pool.Close()
		if err := sink.Init(ctx); err != nil {
			return fail(err)
		}
		u.Sink = sink
	}
	ns, closeNotifiers := notifiers(cfg)
	defer closeNotifiers()
	u.Notifiers = ns

	report, err := u.Update(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.ReportMarkdown(report), c.raw)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.S().Warnw("metrics.push_failed", "url", cfg.Metrics.PushgatewayURL, "error", err)
		}
	}
	return subcommands.ExitSuccess
}

// notifiers builds the run notifiers enabled in cfg, and a function releasing them.
// A notifier that cannot be set up is skipped with a warning: notifications never block an update.
func notifiers(cfg *config.Config) ([]pricebook.Notifier, func()) {
	logg := logger.S()
	var ns []pricebook.Notifier
	closer := func() {}
	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(cfg.Events.NATSURL, "pricebook")
		if err != nil {
			logg.Warnw("events.nats_unavailable", "error", err)
		} else {
			ns = append(ns, events.NewNATSNotifier(nc, cfg.Events.Subject, "pricebook"))
			closer = func() {
				if err := nc.Drain(); err != nil {
					logg.Warnw("nats.drain_failed", "error", err)
				}
			}
		}
	}
	if cfg.Events.SlackWebhookURL != "" {
		ns = append(ns, &events.SlackNotifier{URL: cfg.Events.SlackWebhookURL})
	}
	logg.Debugw("events.notifiers", "count", len(ns))
	return ns, closer
}
