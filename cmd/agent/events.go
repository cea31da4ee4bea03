package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"kb-agent/internal/bootstrap"
	"kb-agent/internal/config"
	"kb-agent/pkg/events"
	pktNats "kb-agent/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var durable string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail run events from the NATS event stream",
		Args:  cobra.NoArgs,
		RunE: withContainer(func(ctx context.Context, cfg *config.Config, _ *bootstrap.Container, cmd *cobra.Command, _ []string) error {
			if cfg.Infra.NatsURL == "" {
				return errors.New("NATS_URL is not set")
			}

			sub, err := pktNats.NewSubscriber(cfg.Infra.NatsURL)
			if err != nil {
				return err
			}
			defer sub.Close()

			out := cmd.OutOrStdout()
			return sub.Subscribe(ctx, durable, func(_ context.Context, event events.Event) error {
				_, err := fmt.Fprintln(out, formatEvent(event))
				return err
			})
		}),
	}

	cmd.Flags().StringVar(&durable, "durable", "", "durable consumer name; empty starts at new events")
	return cmd
}

func formatEvent(event events.Event) string {
	typeColor := color.New(color.FgGreen)
	if event.EventType() == events.TypeRunFailed {
		typeColor = color.New(color.FgRed)
	}

	payload := event.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := fmt.Sprintf("%s %s", event.Timestamp().Format("15:04:05"), typeColor.Sprint(event.EventType()))
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, payload[k])
	}
	return line
}
