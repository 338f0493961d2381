// ABOUTME: CLI commands for registry queries
// ABOUTME: check, delete, and list voiceprints without touching the provider
package commands

import (
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [speaker-id]",
		Short: "Report whether a speaker is enrolled",
		Long: `Report whether a speaker has a stored voiceprint and where it lives.

Examples:
  voiceauth check
  voiceauth check alice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cancel, err := openService(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer closeService(svc)

			return writeRecord(cmd.OutOrStdout(), svc.Check(speakerArg(args, 0)))
		},
	}
}

// NewDeleteCmd creates the delete command
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [speaker-id]",
		Short: "Delete a speaker's voiceprint",
		Long: `Delete a speaker's stored voiceprint.

Deleting a speaker that is not enrolled is reported as a failure with
kind "speaker_not_enrolled".

Examples:
  voiceauth delete
  voiceauth delete alice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cancel, err := openService(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer closeService(svc)

			return writeRecord(cmd.OutOrStdout(), svc.Delete(speakerArg(args, 0)))
		},
	}
}

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled speakers",
		Long: `List the ids of all enrolled speakers, sorted.

Examples:
  voiceauth list
  voiceauth list --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cancel, err := openService(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer closeService(svc)

			return writeRecord(cmd.OutOrStdout(), svc.List())
		},
	}
}
