package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/daybook/pkg/entries"
)

var jsonOutput bool

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage journal entries",
	Long:  `Get, create, and update journal entries.`,
}

var getEntryCmd = &cobra.Command{
	Use:   "get <uuid>",
	Short: "Show an entry with its tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		entry, err := svc.Load(cmd.Context(), args[0])
		if err != nil {
			return describeNotFound(err, args[0])
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var createEntryCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new entry",
	Long:  `Create a new entry with a title, text, date, and tags. The date defaults to now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := entries.EntryInput{Date: entries.FormatDate(time.Now())}
		in.UUID, _ = cmd.Flags().GetString("uuid")
		in = overlayFlags(cmd, in)
		if in.Text == "" {
			return errors.New("entry text is required")
		}
		if in.Tags == nil {
			in.Tags = []string{}
		}

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		entry, err := svc.Create(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var updateEntryCmd = &cobra.Command{
	Use:   "update <uuid>",
	Short: "Update an entry",
	Long:  `Update an entry. Fields without a flag keep their current value; --tags replaces all tags.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if !anyFieldChanged(cmd) {
			return errors.New("no update fields provided (use --title, --text, --date, or --tags)")
		}

		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		current, err := svc.Load(cmd.Context(), id)
		if err != nil {
			return describeNotFound(err, id)
		}
		in := overlayFlags(cmd, entries.EntryInput{
			UUID:  current.UUID,
			Title: current.Title,
			Date:  current.Date,
			Text:  current.Text,
			Tags:  current.Tags,
		})

		entry, err := svc.Update(cmd.Context(), id, in)
		if err != nil {
			return describeNotFound(err, id)
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var fieldFlags = []string{"title", "text", "date", "tags"}

func anyFieldChanged(cmd *cobra.Command) bool {
	for _, name := range fieldFlags {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// overlayFlags replaces the fields of in whose flags were given.
func overlayFlags(cmd *cobra.Command, in entries.EntryInput) entries.EntryInput {
	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title, _ = flags.GetString("title")
	}
	if flags.Changed("text") {
		in.Text, _ = flags.GetString("text")
	}
	if flags.Changed("date") {
		in.Date, _ = flags.GetString("date")
	}
	if flags.Changed("tags") {
		tags, _ := flags.GetString("tags")
		in.Tags = entries.NormalizeTags(strings.Split(tags, ","))
	}
	return in
}

func printEntry(w io.Writer, entry entries.SerializedEntry) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}

	fmt.Fprintln(w, "Entry Details:")
	fmt.Fprintf(w, "UUID:   %s\n", entry.UUID)
	fmt.Fprintf(w, "Title:  %s\n", entry.Title)
	fmt.Fprintf(w, "Date:   %s\n", entry.Date)
	if len(entry.Tags) > 0 {
		fmt.Fprintf(w, "Tags:   %s\n", strings.Join(entry.Tags, ", "))
	} else {
		fmt.Fprintln(w, "Tags:   (none)")
	}
	fmt.Fprintf(w, "\n%s\n", entry.Text)
	return nil
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Inspect tags",
}

var listTagsCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tag in alphabetical order",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := openService(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		tags, err := svc.ListTags(cmd.Context())
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tags found.")
			return nil
		}
		for _, tag := range tags {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

func initEntriesCmd() {
	for _, c := range []*cobra.Command{createEntryCmd, updateEntryCmd} {
		c.Flags().String("title", "", "Entry title")
		c.Flags().String("text", "", "Entry text")
		c.Flags().String("date", "", "Entry date as an RFC 3339 timestamp")
		c.Flags().String("tags", "", "Comma-separated list of tags")
	}
	createEntryCmd.Flags().String("uuid", "", "UUID for the new entry (generated when omitted)")
	entriesCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")

	entriesCmd.AddCommand(getEntryCmd, createEntryCmd, updateEntryCmd)
}

func initTagsCmd() {
	tagsCmd.AddCommand(listTagsCmd)
}
