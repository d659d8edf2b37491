package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/intelliscan/intelliscan/internal/model"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect processing history",
	Long:  "Commands for listing, viewing, exporting, and deleting processing records.",
}

// -- records list --

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processing records, most recent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summaries, err := st.List(ctx)
		if err != nil {
			return eris.Wrap(err, "records list")
		}

		if len(summaries) == 0 {
			fmt.Fprintln(os.Stderr, "No records found.")
			return nil
		}

		formatRecordsList(os.Stdout, summaries)
		return nil
	},
}

// -- records show --

var recordsShowCmd = &cobra.Command{
	Use:   "show <record-id>",
	Short: "Show full details of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal record")
		}
		fmt.Println(string(out))
		return nil
	},
}

// -- records export --

var recordsExportOut string

var recordsExportCmd = &cobra.Command{
	Use:   "export <record-id>",
	Short: "Export a record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		data, err := st.Export(ctx, args[0])
		if err != nil {
			return err
		}

		if recordsExportOut == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(recordsExportOut, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", recordsExportOut)
		}
		fmt.Fprintf(os.Stderr, "Exported %s to %s\n", args[0], recordsExportOut)
		return nil
	},
}

// -- records delete --

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <record-id>",
	Short: "Delete a record from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted %s\n", args[0])
		return nil
	},
}

func formatRecordsList(w io.Writer, summaries []model.RecordSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tFILENAME\tTYPE\tPAGES\tWORDS\tCONF\tENTITIES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%.1f\t%d\n",
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			s.OriginalFilename,
			s.FileType,
			s.PageCount,
			s.WordCount,
			s.Confidence,
			s.EntityCount,
		)
	}
	tw.Flush()
}

func init() {
	recordsExportCmd.Flags().StringVarP(&recordsExportOut, "out", "o", "", "write export to file instead of stdout")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	recordsCmd.AddCommand(recordsExportCmd)
	recordsCmd.AddCommand(recordsDeleteCmd)
	rootCmd.AddCommand(recordsCmd)
}
