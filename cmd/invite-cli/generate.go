package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/career-assistant/internal/api/auth"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
)

const maxGenerateCount = 50

func newGenerateCmd(withStorage func(*cobra.Command, func(*storage.Storage) error) error) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate new invite codes and print them one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 || count > maxGenerateCount {
				return fmt.Errorf("--count must be between 1 and %d", maxGenerateCount)
			}

			codes, err := auth.GenerateInviteCodes(count)
			if err != nil {
				return err
			}

			return withStorage(cmd, func(store *storage.Storage) error {
				invites, err := store.CreateInvites(cmd.Context(), codes, "")
				if err != nil {
					return err
				}
				for _, inv := range invites {
					fmt.Fprintln(cmd.OutOrStdout(), inv.Code)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of codes to generate")
	return cmd
}
