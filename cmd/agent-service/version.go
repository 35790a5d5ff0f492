package main

import (
	"fmt"
	"strings"

	agentservice "github.com/Lifelong-Learning-Assisttant/agent-service"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of agent-service",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agent-service version %s\n", strings.TrimSpace(agentservice.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
