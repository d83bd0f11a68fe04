package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/squatwatch/pkg/permutation"
)

var permuteCmd = &cobra.Command{
	Use:   "permute <domain>",
	Short: "Print look-alike candidates for a domain without probing them",
	Long: `Print the candidate set the scan command would probe. Nothing is sent
over the network.

Examples:
  squatwatch permute example.com
  squatwatch permute example.com --strategies omission,homoglyph --by-strategy
  squatwatch permute --list`,
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runPermute,
}

func init() {
	rootCmd.AddCommand(permuteCmd)

	permuteCmd.Flags().StringSlice("strategies", nil, "restrict generation to these strategies")
	permuteCmd.Flags().Bool("by-strategy", false, "group candidates by the strategy that produced them")
	permuteCmd.Flags().Bool("list", false, "list the available strategies")
}

func runPermute(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("list"); list {
		for _, name := range permutation.StrategyNames() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	names, _ := cmd.Flags().GetStringSlice("strategies")
	engine, err := permutation.New(names...)
	if err != nil {
		return err
	}

	d, err := domain.Parse(args[0])
	if err != nil {
		return err
	}

	if byStrategy, _ := cmd.Flags().GetBool("by-strategy"); byStrategy {
		groups := engine.GenerateByStrategy(d)
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			color.New(color.FgCyan, color.Bold).Fprintf(out, "%s (%d)\n", k, len(groups[k]))
			if len(groups[k]) > 0 {
				fmt.Fprintf(out, "  %s\n", strings.Join(groups[k], "\n  "))
			}
		}
		return nil
	}

	candidates := engine.Generate(d)
	for _, c := range candidates {
		fmt.Fprintln(out, c)
	}
	log.Infow("Generated candidates", "domain", d.String(), "count", len(candidates))
	return nil
}
