package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edumentor/edumentor-go/internal/api"
	"github.com/edumentor/edumentor-go/internal/credfile"
	"github.com/edumentor/edumentor-go/internal/session"
)

// Reconnect backoff for the listen stream.
const (
	listenBackoffBase = time.Second
	listenBackoffMax  = 30 * time.Second
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send and receive direct messages",
	}

	cmd.AddCommand(newChatSendCmd())
	cmd.AddCommand(newChatLogCmd())
	cmd.AddCommand(newChatListenCmd())

	return cmd
}

func newChatSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <user-id> <message>...",
		Short: "Send a direct message",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runChatSend,
	}
}

func newChatLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log <user-id>",
		Short: "Show the conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runChatLog,
	}
}

func newChatListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Stream incoming messages live",
		Long: `Connect to the realtime push channel and print incoming messages as
they arrive. Reconnects automatically; stops when the session ends.
Press Ctrl-C to quit.`,
		RunE: runChatListen,
	}
}

func runChatSend(cmd *cobra.Command, args []string) error {
	receiverID := args[0]
	text := strings.Join(args[1:], " ")
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	if _, err := env.requireRoute(ctx, session.RouteChat); err != nil {
		return err
	}

	msg, err := env.client.SendMessage(ctx, receiverID, text)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("user %s not found", receiverID)
		}

		return fmt.Errorf("sending message: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(msg)
	}

	statusf("Sent.\n")

	return nil
}

func runChatLog(cmd *cobra.Command, args []string) error {
	otherID := args[0]
	ctx := cmd.Context()

	env, err := newAppEnv()
	if err != nil {
		return err
	}

	snap, err := env.requireRoute(ctx, session.RouteChat)
	if err != nil {
		return err
	}

	messages, err := env.client.Conversation(ctx, otherID)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(messages)
	}

	printConversation(messages, snap.Identity.ID)

	return nil
}

func printConversation(messages []api.ChatMessage, selfID string) {
	for i := range messages {
		m := &messages[i]

		sender := m.SenderID
		if sender == selfID {
			sender = "me"
		}

		fmt.Printf("[%s] %s: %s\n", formatTime(m.Timestamp.Time), sender, m.Message)
	}
}

func runChatListen(cmd *cobra.Command, _ []string) error {
	env, err := newAppEnv()
	if err != nil {
		return err
	}

	snap, err := env.requireRoute(cmd.Context(), session.RouteChat)
	if err != nil {
		return err
	}

	ctx := shutdownContext(cmd.Context(), env.logger)

	// Watch the credential file so a login or logout in another terminal
	// re-resolves this session; the listen loop then follows the change.
	watcher := credfile.NewWatcher(env.store.Path(), 0, env.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(gctx, func() {
			env.session.Refresh(context.Background())
		})
	})

	g.Go(func() error {
		return listenLoop(gctx, env, snap)
	})

	return g.Wait()
}

// listenLoop dials the event stream and consumes it, reconnecting with
// exponential backoff. Each (re)connect rechecks the session: a replaced
// session re-binds the stream to the new identity, an ended one stops the
// loop. Events arriving after the session they were issued under are
// discarded with the connection.
func listenLoop(ctx context.Context, env *appEnv, snap session.Snapshot) error {
	generation := snap.Generation
	userID := snap.Identity.ID
	backoff := listenBackoffBase

	for {
		if ctx.Err() != nil {
			return nil
		}

		current := env.session.Snapshot()
		if current.Generation != generation {
			if !current.Authenticated() {
				statusf("Session ended; stopping.\n")

				return nil
			}

			env.logger.Info("session replaced, following new identity",
				"user_id", current.Identity.ID,
			)

			generation = current.Generation
			userID = current.Identity.ID
		}

		stream, err := env.client.Listen(ctx, userID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			env.logger.Warn("event stream connect failed, retrying",
				"error", err.Error(),
				"backoff", backoff.String(),
			)

			if err := sleepCtx(ctx, backoff); err != nil {
				return nil
			}

			backoff = min(backoff*2, listenBackoffMax)

			continue
		}

		backoff = listenBackoffBase

		statusf("Listening for messages. Press Ctrl-C to stop.\n")

		consumeEvents(ctx, env, stream, generation)
		stream.Close()
	}
}

// consumeEvents prints events until the stream breaks or the context ends.
// Events read under a superseded session generation are dropped unseen.
func consumeEvents(ctx context.Context, env *appEnv, stream *api.EventStream, generation uint64) {
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				env.logger.Warn("event stream closed, reconnecting",
					"error", err.Error(),
				)
			}

			return
		}

		if env.session.Snapshot().Generation != generation {
			env.logger.Debug("discarding event from a superseded session")

			return
		}

		printEvent(ev)
	}
}

func printEvent(ev *api.Event) {
	if flagJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}

		fmt.Println(string(data))

		return
	}

	if ev.Type != api.EventTypeNewMessage {
		return
	}

	sender := ev.SenderName
	if sender == "" {
		sender = ev.Data.SenderID
	}

	fmt.Printf("[%s] %s: %s\n", formatTime(ev.Data.Timestamp.Time), sender, ev.Data.Message)
}

// sleepCtx waits for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
