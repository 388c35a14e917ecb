package main

import (
	"github.com/spf13/cobra"

	"github.com/unowned-ai/daybook/pkg/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit <uuid>",
	Short: "Open an entry in the terminal editor",
	Long: `Display an entry in an interactive terminal editor. Press 'e' to edit,
'ctrl+s' to save, and 'esc' to cancel. With --server the entry is loaded from and
saved to a running daybook server instead of the local database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		return tui.ShowEditor(svc, args[0])
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Write a new entry in the terminal editor",
	Long:  `Open the terminal editor on a blank entry dated now. The entry is created on the first save.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		return tui.ShowNewEntry(svc)
	},
}
