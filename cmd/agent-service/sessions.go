package main

import (
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	httpadapter "github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage the sessions of a running server",
	Long:  `List, inspect, cancel and remove sessions of a running agent service through its HTTP API.`,
	RunE:  listSessions,
}

var sessionsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all live sessions",
	RunE:  listSessions,
}

var sessionsEventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print the retained progress events of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := client(cmd).GetEvents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tLEVEL\tSTEP\tMESSAGE")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.TimeOnly), e.Level, e.Step, e.Message)
		}
		return w.Flush()
	},
}

var sessionsCancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Cancel the running execution of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client(cmd).CancelSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cancelled session '%s'\n", args[0])
		return nil
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client(cmd)
		var failed int
		for _, id := range args {
			if err := c.RemoveSession(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sessions could not be removed", failed, len(args))
		}
		return nil
	},
}

func listSessions(cmd *cobra.Command, args []string) error {
	sessions, err := client(cmd).ListSessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No live sessions.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRUNNING\tEVENTS\tAGE\tLAST ACTIVE")
	for _, s := range sessions {
		age := time.Duration(s.AgeSeconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\t%s\n", s.ID, s.IsRunning, s.EventCount, age, s.LastActiveAt.Format(time.DateTime))
	}
	return w.Flush()
}

func client(cmd *cobra.Command) *httpadapter.Client {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return httpadapter.NewClient(server, &http.Client{Timeout: timeout})
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsLsCmd, sessionsEventsCmd, sessionsCancelCmd, sessionsRmCmd)
	sessionsCmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the running agent service")
	sessionsCmd.PersistentFlags().Duration("timeout", 10*time.Second, "Request timeout")
}
