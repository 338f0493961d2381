// ABOUTME: CLI command to enroll a speaker from one or more samples
// ABOUTME: Replaces any existing voiceprint for the speaker
package commands

import (
	"github.com/spf13/cobra"
)

// NewEnrollCmd creates the enroll command
func NewEnrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll <sample>...",
		Short: "Enroll a speaker from audio samples",
		Long: `Enroll a speaker from one or more WAV samples.

Each sample is embedded and the mean of the embeddings becomes the
speaker's voiceprint. Enrolling again replaces the previous voiceprint.

Examples:
  voiceauth enroll a.wav b.wav c.wav
  voiceauth enroll --speaker-id alice alice-*.wav`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEnroll,
	}

	return cmd
}

func runEnroll(cmd *cobra.Command, args []string) error {
	svc, ctx, cancel, err := openService(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer closeService(svc)

	return writeRecord(cmd.OutOrStdout(), svc.Enroll(ctx, speakerFlag, args))
}
