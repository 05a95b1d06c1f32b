package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCompleteTxPolicies(t *testing.T) {
	got, directive := completeTxPolicies(rootCmd, nil, "c")
	assert.Equal(t, []string{"counter"}, got)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	got, _ = completeTxPolicies(rootCmd, nil, "")
	assert.Equal(t, txPolicies, got)
}

func TestCompleteOutputFormats(t *testing.T) {
	got, _ := completeOutputFormats(queryCmd, nil, "j")
	assert.Equal(t, []string{"json"}, got)

	got, _ = completeOutputFormats(queryCmd, nil, "x")
	assert.Empty(t, got)
}
