// Package cmd implements the pbk command line to maintain the price history.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/pricebook/amfi"
	"github.com/etnz/pricebook/config"
	"github.com/etnz/pricebook/logger"
	"github.com/etnz/pricebook/yahoo"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&updateCmd{}, "prices")
	c.Register(&missingCmd{}, "prices")
	c.Register(&historyCmd{}, "prices")
	c.Register(&quoteCmd{}, "prices")

	c.Register(&mapCmd{}, "reference data")
	c.Register(&navCmd{}, "reference data")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to the YAML configuration file (defaults to "+config.DefaultFile+" when present)")
var dataDir = flag.String("data-dir", "", "Directory holding the data files, overrides the configuration")
var symbolMapFile = flag.String("symbol-map", "", "Path to the symbol map, overrides the configuration")
var useCache = flag.Bool("cache", false, "cache provider responses on disk for the day")

// loadConfig reads the configuration, applies the global flags and initializes the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *symbolMapFile != "" {
		cfg.Data.SymbolMap = *symbolMapFile
	}
	logger.Init("pricebook", cfg.App.Env, cfg.App.LogLevel)
	return cfg, nil
}

func newYahoo(cfg *config.Config) *yahoo.Client {
	return yahoo.New(yahoo.Options{
		QuoteURL:          cfg.Yahoo.QuoteURL,
		ChartURL:          cfg.Yahoo.ChartURL,
		ChunkSize:         cfg.Yahoo.ChunkSize,
		Concurrency:       cfg.Yahoo.Concurrency,
		Timeout:           cfg.Yahoo.Timeout,
		RequestsPerSecond: cfg.Yahoo.RequestsPerSecond,
		Burst:             cfg.Yahoo.Burst,
		Location:          cfg.MarketLocation(),
		Cache:             *useCache,
	})
}

func newAMFI(cfg *config.Config) *amfi.Client {
	return amfi.New(cfg.AMFI.URL, cfg.AMFI.Timeout, *useCache)
}

// printMarkdown renders md for the terminal, or prints it as is when raw is set.
func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}
