package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codefionn/concierge/internal/tools"
)

var toolsCategory string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the orchestrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newApp(cmd.Context(), appOptions{connectServers: true})
		if err != nil {
			return err
		}
		defer rt.close()

		infos := rt.registry.ListAvailable()
		if toolsCategory != "" {
			infos = rt.registry.ListByCategory(toolsCategory)
		}
		return printTools(cmd, infos)
	},
}

func init() {
	toolsCmd.Flags().StringVar(&toolsCategory, "category", "", "Only list tools of this category")
}

func printTools(cmd *cobra.Command, infos []tools.Info) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No tools available.")
		return err
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Category != infos[j].Category {
			return infos[i].Category < infos[j].Category
		}
		return infos[i].Name < infos[j].Name
	})

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tPARAMETERS\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Category,
			strings.Join(tools.ParameterNames(info.Parameters), ","), firstSentence(info.Description))
	}
	return tw.Flush()
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".\n"); i >= 0 {
		return s[:i+1]
	}
	return s
}
