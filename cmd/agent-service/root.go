package main

import (
	"fmt"
	"os"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agent-service",
	Short: "Session orchestration service of the study assistant",
	Long: `agent-service answers study questions per session: it classifies each
question and routes it to a direct answer, a retrieval-grounded answer,
quiz generation or quiz evaluation, streaming progress events as it goes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (default $AGENT_CONFIG or "+config.DefaultFile+")")
	rootCmd.PersistentFlags().String("env-file", config.DefaultEnvFile, "dotenv file read before the environment")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(config.Options{File: file, EnvFile: envFile})
}
