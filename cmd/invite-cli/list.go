package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/career-assistant/internal/api/model"
	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/shared/pagination"
)

func newListCmd(withStorage func(*cobra.Command, func(*storage.Storage) error) error) *cobra.Command {
	var unusedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invite codes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd, func(store *storage.Storage) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tUSED\tUSED BY\tCREATED")

				var cursor *pagination.Cursor
				for {
					page, err := store.ListInvites(cmd.Context(), storage.InviteFilter{
						ListOptions: storage.ListOptions{Limit: pagination.MaxLimit, Cursor: cursor},
						UnusedOnly:  unusedOnly,
					})
					if err != nil {
						return err
					}

					for _, inv := range page.Items {
						writeInvite(w, inv)
					}

					if !page.HasNext || page.NextCursor == nil {
						break
					}
					next, err := pagination.DecodeCursor(*page.NextCursor)
					if err != nil {
						return err
					}
					cursor = &next
				}

				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&unusedOnly, "unused-only", false, "only show codes that have not been used")
	return cmd
}

func writeInvite(w *tabwriter.Writer, inv model.Invite) {
	usedBy := "-"
	if inv.UsedBy.Valid {
		usedBy = inv.UsedBy.String
	}
	fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", inv.Code, inv.IsUsed, usedBy, inv.CreatedAt.Format(time.RFC3339))
}
