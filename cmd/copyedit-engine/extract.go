// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/copyedit-engine/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "List the text segments of an HTML document",
	Long: `Extract parses an HTML document and prints its text segments: id,
container tag, protection status, and text. Protected segments
(scripts, styles, code, editable regions, hidden content) are never
modified by correction runs.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("json", false, "output segments as JSON")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	html, _, err := readDocument(args)
	if err != nil {
		return err
	}

	segments, _, err := extract.Extract(html)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(segments)
	}

	if len(segments) == 0 {
		fmt.Println("No text segments found.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Tag", "Protected", "Text"})

	modifiable := 0
	for _, s := range segments {
		protected := "yes"
		if s.Modifiable {
			protected = ""
			modifiable++
		}
		table.Append([]string{
			strconv.Itoa(s.ID),
			s.ContainerTag,
			protected,
			excerpt(s.Text, 60),
		})
	}
	table.Render()

	fmt.Printf("\n%d segments (%d modifiable, %d protected)\n",
		len(segments), modifiable, len(segments)-modifiable)
	return nil
}
