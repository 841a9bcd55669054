package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/subwatch/subwatch/internal/config"
	"github.com/subwatch/subwatch/internal/crtsh"
	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/notify"
	"github.com/subwatch/subwatch/internal/store/postgres"
)

var checkSendTest bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configuration and every external dependency",
	Long:  "Validates the configuration, pings Postgres, fetches one domain from the certificate log and optionally sends a test message to every configured sink.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkSendTest, "send-test", false,
		"send a test message to every configured sink")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Printf("✅ configuration valid (%d domain(s), interval %s)\n",
		len(cfg.Domains), cfg.Interval)

	log := logger.New("error", cfg.PrettyLog)
	ctx := context.Background()

	db, err := postgres.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("❌ postgres unreachable: %w", err)
	}
	defer func() { _ = db.Close() }()
	fmt.Printf("✅ postgres reachable at %s:%s/%s\n", cfg.DBHost, cfg.DBPort, cfg.DBName)

	source := crtsh.New(cfg.CrtshBaseURL, cfg.FetchTimeout, cfg.FetchMinGap, log)
	probe := cfg.Domains[0]
	hostnames, err := source.Fetch(ctx, probe)
	if err != nil {
		return fmt.Errorf("❌ certificate log fetch for %s failed: %w", probe, err)
	}
	fmt.Printf("✅ certificate log answered for %s (%d hostname(s))\n", probe, len(hostnames))

	if checkSendTest {
		sinks := testSinks(cfg)
		msg := fmt.Sprintf("subwatch test message (%s)", time.Now().Format("2006-01-02 15:04:05"))
		for _, sink := range sinks {
			if err := sink.Deliver(ctx, msg); err != nil {
				fmt.Printf("❌ %s delivery failed: %v\n", sink.Name(), err)
				continue
			}
			fmt.Printf("✅ %s delivery ok\n", sink.Name())
		}
	}
	return nil
}

func testSinks(cfg *config.Config) []notify.Sink {
	var sinks []notify.Sink
	if cfg.TelegramEnabled() {
		sinks = append(sinks, notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		sinks = append(sinks, notify.NewDiscord(cfg.DiscordWebhookURL))
	}
	if cfg.NATSURL != "" {
		if sink, err := notify.NewNATS(cfg.NATSURL, cfg.NATSSubject); err == nil {
			sinks = append(sinks, sink)
		} else {
			fmt.Printf("❌ nats unreachable: %v\n", err)
		}
	}
	return sinks
}
