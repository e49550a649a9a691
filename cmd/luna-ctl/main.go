package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"luna/internal/ipc"
	"luna/pkg/protocol"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	socket  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opt := &options{}

	root := &cobra.Command{
		Use:           "luna-ctl",
		Short:         "Control a running luna-daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	socket := os.Getenv("LUNA_SOCKET")
	if socket == "" {
		socket = ipc.SocketPath
	}
	root.PersistentFlags().StringVarP(&opt.socket, "socket", "s", socket, "Daemon control socket")
	root.PersistentFlags().DurationVarP(&opt.timeout, "timeout", "t", 2*time.Minute, "How long to wait for a reply")

	root.AddCommand(
		&cobra.Command{
			Use:   "trigger",
			Short: "Listen for one command without the wake word",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, opt, ipc.ControlMessage{Cmd: ipc.CmdTrigger})
			},
		},
		&cobra.Command{
			Use:   "ask <command...>",
			Short: "Run a typed command as if it were spoken",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, opt, ipc.ControlMessage{Cmd: ipc.CmdAsk, Text: strings.Join(args, " ")})
			},
		},
		&cobra.Command{
			Use:   "say <text...>",
			Short: "Speak a line",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, opt, ipc.ControlMessage{Cmd: ipc.CmdSay, Text: strings.Join(args, " ")})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Clear the chat history",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, opt, ipc.ControlMessage{Cmd: ipc.CmdReset})
			},
		},
		&cobra.Command{
			Use:   "transcribe <audio file>",
			Short: "Transcribe a wav, mp3 or ogg file with the daemon's recognizer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				return send(cmd, opt, ipc.ControlMessage{Cmd: ipc.CmdTranscribe, Text: path})
			},
		},
		newWatchCmd(),
	)

	return root
}

func send(cmd *cobra.Command, opt *options, msg ipc.ControlMessage) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opt.timeout)
	defer cancel()

	reply, err := ipc.SendCommand(ctx, opt.socket, msg)
	switch {
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("luna-daemon not running: %w", err)
	case err != nil:
		return err
	}
	if reply.Reply != "" {
		fmt.Fprintln(cmd.OutOrStdout(), reply.Reply)
	}
	return nil
}

func newWatchCmd() *cobra.Command {
	var (
		url    string
		apiKey string
		reconn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the daemon's events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := http.Header{}
			if apiKey != "" {
				header.Set("X-API-Key", apiKey)
			}
			return watch(cmd, url, header, reconn)
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "ws://127.0.0.1:8090/ws", "Event stream url")
	cmd.Flags().StringVar(&apiKey, "key", os.Getenv("LUNA_HTTP_API_KEY"), "HTTP api key")
	cmd.Flags().DurationVar(&reconn, "reconnect", 2*time.Second, "Delay between reconnect attempts")
	return cmd
}

func watch(cmd *cobra.Command, url string, header http.Header, reconn time.Duration) error {
	ctx := cmd.Context()

	web, err := protocol.NewWebSocket(ctx, url, header, reconn)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer web.Close()

	// Unblocks Read on interrupt.
	stop := context.AfterFunc(ctx, func() { web.Close() })
	defer stop()

	out := cmd.OutOrStdout()
	for {
		in := web.Read()
		switch in.Kind {
		case protocol.ReadOK:
			fmt.Fprintln(out, in.Event)
		case protocol.BadMessage:
			fmt.Fprintln(cmd.ErrOrStderr(), "skipping message:", in.Err)
		default:
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "connection lost, reconnecting:", in.Err)
			if err := web.TryReconn(ctx); err != nil {
				return nil
			}
		}
	}
}
