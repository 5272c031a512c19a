package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/output"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the blocks the importer can produce",
	Long: `Blocks lists every rule the importer runs, built-in rules first and then
those loaded with --rules, in the order they are applied.`,
	Args: cobra.NoArgs,
	RunE: runBlocks,
}

func init() {
	rootCmd.AddCommand(blocksCmd)

	blocksCmd.Flags().String("format", "table", "output format: table, json, yaml")
}

func runBlocks(cmd *cobra.Command, _ []string) error {
	im, err := newImporter()
	if err != nil {
		return err
	}
	catalog := im.Registry().Catalog()

	formatStr, _ := cmd.Flags().GetString("format")
	if formatStr == "table" {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tBLOCK\tSELECTOR\tDESCRIPTION")
		for _, info := range catalog {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Block, info.Selector, info.Description)
		}
		return tw.Flush()
	}

	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logger.Error("invalid format", "format", formatStr, "error", err)
		return err
	}
	writer, err := output.NewWriter(os.Stdout, format)
	if err != nil {
		return err
	}
	if format == output.FormatJSONL {
		for _, info := range catalog {
			if err := writer.Write(info); err != nil {
				return err
			}
		}
	} else if err := writer.Write(catalog); err != nil {
		return err
	}
	return writer.Close()
}
