package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/hashchat-engine/internal/app"
	"github.com/vovakirdan/hashchat-engine/internal/core"
)

func newRoomsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List rooms; the current one is marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(_ context.Context, a *app.App) error {
				current, _ := a.Engine().CurrentRoom()
				for _, r := range a.Engine().Rooms() {
					mark := " "
					if r.ID == current.ID {
						mark = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s %s\n", mark, r.JoinCode, r.Name)
				}
				return nil
			})
		},
	}
}

func newCreateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a room and enter it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				room, err := a.Engine().Create(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s, share code %s\n", room.Name, room.JoinCode)
				return nil
			})
		},
	}
}

func newJoinCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "join <name-or-code>",
		Short: "Enter a room by name or join code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				room, err := a.Engine().Join(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "joined %s (%s)\n", room.Name, room.JoinCode)
				return nil
			})
		},
	}
}

func newLeaveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the current room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Engine().Leave(ctx)
			})
		},
	}
}

func newSendCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send a message to the current room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				msg, err := a.Engine().Send(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				printMessage(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func newAttachCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <image-file>",
		Short: "Share an image in the current room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if _, ok := a.Engine().CurrentRoom(); !ok {
					return core.ErrNoActiveRoom
				}
				ref, err := encodeFile(ctx, a, args[0])
				if err != nil {
					return err
				}
				msg, err := a.Engine().SendAttachment(ctx, ref)
				if err != nil {
					return err
				}
				printMessage(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the current room's messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(_ context.Context, a *app.App) error {
				if _, ok := a.Engine().CurrentRoom(); !ok {
					return core.ErrNoActiveRoom
				}
				for _, msg := range a.Engine().Messages() {
					printMessage(cmd.OutOrStdout(), msg)
				}
				return nil
			})
		},
	}
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the current room live; lines typed on stdin are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				room, ok := a.Engine().CurrentRoom()
				if !ok {
					return core.ErrNoActiveRoom
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "watching %s, ctrl-c to stop\n", room.Name)

				events, unsubscribe := a.Engine().Subscribe(0)
				defer unsubscribe()

				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				lines := make(chan string)
				go scanLines(ctx, cmd.InOrStdin(), lines)

				for {
					select {
					case <-ctx.Done():
						return nil
					case line, ok := <-lines:
						if !ok {
							lines = nil
							continue
						}
						if _, err := a.Engine().Send(ctx, line); err != nil && core.KindOf(err) != core.KindValidation {
							return err
						}
					case ev, ok := <-events:
						if !ok {
							return nil
						}
						printEvent(out, ev)
					}
				}
			})
		},
	}
}

// scanLines forwards lines from in until EOF or until ctx is done.
func scanLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
}

func printEvent(out io.Writer, ev core.Event) {
	switch ev.Kind {
	case core.EventMessage:
		printMessage(out, *ev.Message)
	case core.EventTyping:
		fmt.Fprintf(out, "  %s is typing...\n", ev.Typing)
	case core.EventNotice:
		fmt.Fprintf(out, "  -- %s\n", ev.Notice.Text())
	case core.EventRoomChanged:
		if ev.Room == nil {
			fmt.Fprintln(out, "  -- left the room")
		} else {
			fmt.Fprintf(out, "  -- now in %s\n", ev.Room.Name)
		}
	}
}

func printMessage(out io.Writer, msg core.Message) {
	body := msg.Body
	if msg.Kind == core.MessageImage {
		body += " " + shortRef(msg.AttachmentRef)
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", msg.SentAt, msg.SenderDisplayName, body)
}

// shortRef abbreviates inline data URIs, which are too long to print.
func shortRef(ref string) string {
	if !strings.HasPrefix(ref, "data:") {
		return ref
	}
	mime, _, _ := strings.Cut(strings.TrimPrefix(ref, "data:"), ";")
	return fmt.Sprintf("<%s, %s>", mime, humanize.Bytes(uint64(len(ref))))
}
