package main

import (
	"fmt"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/presentation/graph"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the orchestration graph as a Mermaid flowchart",
	RunE: func(cmd *cobra.Command, args []string) error {
		var overlay *graph.Overlay
		if name, _ := cmd.Flags().GetString("intent"); name != "" {
			intent, err := domain.ParseIntent(name)
			if err != nil {
				return err
			}
			overlay = &graph.Overlay{Visited: runtime.Path(intent)}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Nodes(), runtime.Edges(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("intent", "", "Highlight the path taken for this intent")
}
