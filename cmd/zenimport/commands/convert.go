package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/output"
	"github.com/jmylchreest/zenimport/internal/source"
	"github.com/jmylchreest/zenimport/pkg/importer"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file|-]",
	Short: "Convert an HTML page into block markup",
	Long: `Convert reads an HTML page, detects the sections the rules know about
and prints one block per section in page order.

The page comes from a file, from standard input ("-") or from --url.

Examples:
  # Markup to stdout
  zenimport convert landing.html

  # Block records as JSON, with extra rules
  zenimport convert landing.html --format json --rules testimonials.yaml

  # From a pipe, writing to a file
  curl -s https://example.com/ | zenimport convert - -o page.txt --stats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	flags := convertCmd.Flags()
	flags.StringP("url", "u", "", "fetch the page from this URL instead of a file")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "markup", "output format: markup, json, jsonl, yaml")
	flags.Bool("stats", false, "print import statistics to stderr")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("convert command starting")

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logger.Error("invalid format", "format", formatStr, "error", err)
		return err
	}

	doc, err := readInput(ctx, cmd, args)
	if err != nil {
		return err
	}

	im, err := newImporter()
	if err != nil {
		return err
	}

	result, err := im.Run(doc.HTML)
	if err != nil {
		if errors.Is(err, importer.ErrNoSectionsFound) {
			logger.Error("no recognizable sections found", "input", doc.Name)
		} else {
			logger.Error("import failed", "input", doc.Name, "error", err)
		}
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	outFile, closeOut, err := outputFile(outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	writer, err := output.NewWriter(outFile, format)
	if err != nil {
		logger.Error("failed to create output writer", "format", format, "error", err)
		return err
	}
	if err := writeResult(writer, format, result); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		fmt.Fprintf(os.Stderr, "Input: %s (%s, %s)\n", doc.Name, humanize.Bytes(uint64(doc.Size)), doc.Charset)
		fmt.Fprintln(os.Stderr, result.Stats.String())
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w.String())
		}
	}

	logInfo("Converted %d section(s) from %s", result.Count, doc.Name)
	return nil
}

// readInput loads the page from --url, a file argument or stdin.
func readInput(ctx context.Context, cmd *cobra.Command, args []string) (*source.Document, error) {
	reader, err := newReader()
	if err != nil {
		return nil, err
	}

	url, _ := cmd.Flags().GetString("url")
	var doc *source.Document
	switch {
	case url != "" && len(args) > 0:
		return nil, errors.New("give either a file or --url, not both")
	case url != "":
		logger.Debug("fetching page", "url", url)
		doc, err = reader.FetchURL(ctx, url)
	case len(args) == 1:
		doc, err = reader.ReadFile(args[0])
	default:
		return nil, cmd.Help()
	}
	if err != nil {
		logger.Error("failed to read input", "error", err)
		return nil, err
	}
	return doc, nil
}

// writeResult renders the result in the chosen format. Markup prints the
// serialized blocks, JSON and YAML a list of block records and JSONL one
// record per line.
func writeResult(w output.Writer, format output.Format, result *importer.Result) error {
	switch format {
	case output.FormatMarkup:
		return w.Write(result)
	case output.FormatJSONL:
		for _, b := range result.Blocks {
			if err := w.Write(b); err != nil {
				return err
			}
		}
		return nil
	default:
		return w.Write(result.Blocks)
	}
}
