package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// sampleQuestions exercise both sides of the uncertainty gate: one has a
// single verifiable answer, the others should end in "I don't know" or a
// flagged ambiguity.
var sampleQuestions = []string{
	"What is the exact CVE identifier for the Heartbleed vulnerability?",
	"What's the exact cryptographic algorithm used in Tesla's latest vehicle-to-infrastructure communication protocol?",
	"Who is currently the most dangerous ransomware group?",
	"What's the 'best' cybersecurity certification for everyone?",
}

// sampleQuestion returns the 1-based sample n
func sampleQuestion(n int) (string, error) {
	if n < 1 || n > len(sampleQuestions) {
		return "", fmt.Errorf("sample %d does not exist (choose 1-%d, see `unsure samples`)", n, len(sampleQuestions))
	}
	return sampleQuestions[n-1], nil
}

func newSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "List the sample questions",
		Long:  `List the sample questions. Ask one with: unsure ask --sample N`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i, q := range sampleQuestions {
				fmt.Fprintf(out, "%d. %s\n", i+1, q)
			}
			return nil
		},
	}
}
