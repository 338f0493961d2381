// ABOUTME: CLI command to verify a sample against an enrolled speaker
// ABOUTME: Accepts the speaker id and threshold positionally or as flags
package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var verifyThreshold string

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <sample> [speaker-id] [threshold]",
		Short: "Verify a sample against an enrolled speaker",
		Long: `Verify whether a WAV sample was spoken by an enrolled speaker.

The sample is embedded and compared with the speaker's voiceprint by
cosine similarity. The speaker is verified when the similarity is at
least the threshold (default 0.75, valid range [-1, 1]).

A speaker without a voiceprint is reported with "needs_enrollment": true.

Examples:
  voiceauth verify attempt.wav
  voiceauth verify attempt.wav alice 0.8
  voiceauth verify attempt.wav --speaker-id alice --threshold 0.8`,
		Args: cobra.RangeArgs(1, 3),
		RunE: runVerify,
	}

	cmd.Flags().StringVar(&verifyThreshold, "threshold", "", "Similarity threshold in [-1, 1]")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	threshold, err := parseThreshold(args)
	if err != nil {
		return err
	}

	svc, ctx, cancel, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer closeService(svc)

	return writeRecord(cmd.OutOrStdout(), svc.Verify(ctx, speakerArg(args, 1), args[0], threshold))
}

// parseThreshold reads the positional threshold, then --threshold. A
// value that is not a number is a malformed invocation; range checks
// happen in the service.
func parseThreshold(args []string) (*float64, error) {
	raw := verifyThreshold
	if len(args) > 2 {
		raw = args[2]
	}
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid threshold %q: not a number", raw)
	}
	return &v, nil
}
