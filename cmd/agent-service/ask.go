package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	agentservice "github.com/Lifelong-Learning-Assisttant/agent-service"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/presentation/tui"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/sanitize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>...",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		question, err := sanitize.Input(strings.Join(args, " "), cfg.MaxInputSize)
		if err != nil {
			return err
		}
		svc, err := agentservice.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = svc.Close(closeCtx)
		}()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		answer, err := svc.Run(ctx, question, sessionID)
		if err != nil {
			return err
		}

		render := tui.Plain
		if raw, _ := cmd.Flags().GetBool("raw"); !raw && term.IsTerminal(int(os.Stdout.Fd())) {
			render = tui.NewRenderer()
		}
		out, err := render(answer)
		if err != nil {
			out, _ = tui.Plain(answer)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("session", "s", "", "Session id (default: a new random id)")
	askCmd.Flags().Duration("timeout", 5*time.Minute, "Maximum time to wait for the answer")
	askCmd.Flags().Bool("raw", false, "Print the Markdown answer without rendering")
}
