package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	txPolicies    = []string{"reject", "counter"}
	outputFormats = []string{formatAuto, formatTable, formatJSON}
)

func completeFrom(values []string, toComplete string) []string {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, toComplete) {
			matches = append(matches, v)
		}
	}
	return matches
}

// completeTxPolicies provides shell completion for --tx.
func completeTxPolicies(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(txPolicies, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeOutputFormats provides shell completion for --format.
func completeOutputFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return completeFrom(outputFormats, toComplete), cobra.ShellCompDirectiveNoFileComp
}
