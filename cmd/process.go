package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var processJSON bool

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Run the OCR pipeline on a local document",
	Long:  "Processes a PNG, JPEG, TIFF, BMP, or PDF file, extracts text and entities, and stores the result in history.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Pipeline.Process(ctx, data, filepath.Base(args[0]))
		if err != nil {
			return err
		}

		if processJSON {
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal record")
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Record:     %s\n", rec.ID)
		fmt.Printf("Pages:      %d\n", rec.Result.PageCount)
		fmt.Printf("Words:      %d\n", rec.Result.WordCount)
		fmt.Printf("Confidence: %.1f\n", rec.Result.Confidence)
		fmt.Printf("Entities:   %d emails, %d phones, %d dates, %d amounts, %d urls\n",
			len(rec.Entities.Emails), len(rec.Entities.Phones), len(rec.Entities.Dates),
			len(rec.Entities.Amounts), len(rec.Entities.URLs))
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processJSON, "json", false, "print the full record as JSON")
	rootCmd.AddCommand(processCmd)
}
