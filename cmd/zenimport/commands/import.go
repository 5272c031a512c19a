package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/pages"
)

const defaultDBPath = "zenimport.db"

var importCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Create a page from an HTML file",
	Long: `Import converts an HTML page and stores the markup as a new page in the
page database. The slug must not be in use already.

Examples:
  zenimport import landing.html --slug solutions --title "Solutions"
  zenimport import --url "https://example.com/" --slug home --title Home --status publish`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	flags := importCmd.Flags()
	flags.StringP("url", "u", "", "fetch the page from this URL instead of a file")
	flags.String("slug", "", "page slug, without leading slash (required)")
	flags.String("title", "", "page title (required)")
	flags.String("status", "", "page status: draft or publish (default draft)")
	flags.String("author", "", "page author (default admin)")
	flags.String("db", defaultDBPath, "page database path")

	_ = importCmd.MarkFlagRequired("slug")
	_ = importCmd.MarkFlagRequired("title")

	_ = viper.BindPFlag("db", flags.Lookup("db"))
	_ = viper.BindPFlag("status", flags.Lookup("status"))
	_ = viper.BindPFlag("author", flags.Lookup("author"))
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("import command starting")

	doc, err := readInput(ctx, cmd, args)
	if err != nil {
		return err
	}

	im, err := newImporter()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	svc := pages.NewService(st, im, pages.Config{
		DefaultStatus: viper.GetString("status"),
		DefaultAuthor: viper.GetString("author"),
	})

	slugFlag, _ := cmd.Flags().GetString("slug")
	title, _ := cmd.Flags().GetString("title")
	out, err := svc.Import(ctx, pages.Request{
		Slug:  slugFlag,
		Title: title,
		HTML:  doc.HTML,
	})
	if err != nil {
		logger.Error("HTML import error", "input", doc.Name, "error", err)
		return err
	}

	logInfo("Created page %d (/%s) with %d section(s)", out.PageID, out.Slug, out.SectionsFound)
	return nil
}
