package cmd

import (
	"flag"
	"testing"

	"github.com/etnz/pricebook/config"
	"github.com/etnz/pricebook/events"
	"github.com/etnz/pricebook/logger"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	logger.Set(zap.NewNop())
	m.Run()
}

func TestRegister(t *testing.T) {
	c := subcommands.NewCommander(flag.NewFlagSet("pbk", flag.ContinueOnError), "pbk")
	Register(c)

	var names []string
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		names = append(names, cmd.Name())
	})
	assert.ElementsMatch(t, []string{"update", "missing", "history", "quote", "map", "nav", "topic"}, names)
}

func TestNotifiersDisabled(t *testing.T) {
	ns, closer := notifiers(config.Default())
	defer closer()
	assert.Empty(t, ns)
}

func TestNotifiersSlack(t *testing.T) {
	cfg := config.Default()
	cfg.Events.SlackWebhookURL = "https://hooks.slack.invalid/services/T/B/X"
	ns, closer := notifiers(cfg)
	defer closer()
	if assert.Len(t, ns, 1) {
		assert.IsType(t, &events.SlackNotifier{}, ns[0])
	}
}

func TestNotifiersNATSUnavailable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	cfg := config.Default()
	cfg.Events.NATSURL = "nats://127.0.0.1:1"
	ns, closer := notifiers(cfg)
	defer closer()
	assert.Empty(t, ns, "an unreachable server is skipped")

	warnings := logs.FilterMessage("events.nats_unavailable").All()
	if assert.Len(t, warnings, 1) {
		assert.Contains(t, warnings[0].ContextMap()["error"], "127.0.0.1:1")
	}
}
