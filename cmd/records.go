package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/records"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect and manage enrolled records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled records",
	Long: `List enrolled records in enrollment order.

Examples:
  face-registry records list
  face-registry records list --id alice
  face-registry records list --json`,
	Args: cobra.NoArgs,
	RunE: runRecordsList,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id> <filename>",
	Short: "Delete every record with the given id and filename",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecordsDelete,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)

	recordsListCmd.Flags().String("id", "", "Only list records of this subject id")
	recordsListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	id := mustGetString(cmd, "id")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	service, cleanup, err := openService(ctx, config.Load(), 0)
	if err != nil {
		return err
	}
	defer cleanup()

	var entries []records.Entry
	if id != "" {
		filenames, err := service.ListByID(ctx, id)
		if err != nil {
			return err
		}
		entries = make([]records.Entry, 0, len(filenames))
		for _, f := range filenames {
			entries = append(entries, records.Entry{ID: records.NormalizeKey(id), Filename: f})
		}
	} else {
		entries, err = service.ListAll(ctx)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return outputJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No records enrolled.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tFILENAME")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, e.ID, e.Filename)
	}
	w.Flush()
	fmt.Printf("\n%d record(s)\n", len(entries))
	return nil
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	service, cleanup, err := openService(ctx, config.Load(), 0)
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := service.Delete(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d record(s)\n", removed)
	return nil
}
