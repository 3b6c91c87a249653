package main

import (
	"os"
	"os/signal"

	"github.com/aretw0/orderdesk"
	"github.com/aretw0/orderdesk/internal/presentation/tui"
	"github.com/aretw0/orderdesk/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Starts an interactive session. Options can be picked by number or typed out.
Type /end to end the session and print its summary, or exit to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		desk, cleanup, err := buildDesk(ctx, cfg, logger, observability.NewMetrics(nil))
		if err != nil {
			return err
		}
		defer cleanup()

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = uuid.NewString()
		}

		runner := &orderdesk.Runner{
			Input:  os.Stdin,
			Output: os.Stdout,
			UserID: userID,
		}
		if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
			tui.PrintBanner(os.Stdout)
			width, _, err := term.GetSize(fd)
			if err != nil {
				width = 80
			}
			runner.Renderer = tui.NewRenderer(width)
		}
		return runner.Run(ctx, desk)
	},
}

func init() {
	chatCmd.Flags().String("user", "", "User ID; an existing session is resumed (default: random)")
	rootCmd.AddCommand(chatCmd)
}
