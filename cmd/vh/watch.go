package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/varhub/internal/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream variable changes as they happen",
	Long: `Stream variable changes as they happen.

By default the server's WebSocket hub is used. With --nats, events are read
straight from the NATS bus the server publishes to.`,
	GroupID: "realtime",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		useNATS, _ := cmd.Flags().GetBool("nats")
		out := cmd.OutOrStdout()

		if !useNATS {
			return varsClient.Watch(cmd.Context(), func(f events.Frame) error {
				return printFrame(out, outputFormat, f)
			})
		}

		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			natsURL = os.Getenv("VARHUB_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL == "" {
			return fmt.Errorf("--nats needs a NATS URL (--nats-url, VARHUB_NATS_URL or the active remote)")
		}

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "NATS disconnected: %v\n", err)
				}
			}),
			nats.ReconnectHandler(func(*nats.Conn) {
				fmt.Fprintln(os.Stderr, "NATS reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()
		return streamBus(cmd.Context(), sub, out, outputFormat)
	},
}

// streamBus prints every variable event from sub until ctx is done.
func streamBus(ctx context.Context, sub events.Subscriber, w io.Writer, format string) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f := events.Frame{Type: events.MessageName(msg.Topic), Topic: msg.Topic, Data: msg.Data}
			if err := printFrame(w, format, f); err != nil {
				return err
			}
		}
	}
}

func init() {
	watchCmd.Flags().Bool("nats", false, "read events from NATS instead of the WebSocket hub")
	watchCmd.Flags().String("nats-url", "", "NATS URL (default $VARHUB_NATS_URL or the active remote's)")
}
