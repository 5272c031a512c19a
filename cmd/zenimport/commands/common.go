package commands

import (
	"os"

	"github.com/spf13/viper"

	"github.com/jmylchreest/zenimport/internal/logger"
	"github.com/jmylchreest/zenimport/internal/rules"
	"github.com/jmylchreest/zenimport/internal/source"
	"github.com/jmylchreest/zenimport/internal/store"
	"github.com/jmylchreest/zenimport/pkg/importer"
	"github.com/jmylchreest/zenimport/pkg/section"
)

// newImporter builds an importer from the built-in rules plus any rule files
// named by --rules or the rules config key.
func newImporter() (*importer.Importer, error) {
	var extra []section.Rule
	for _, path := range viper.GetStringSlice("rules") {
		logger.Debug("loading rules", "path", path)
		loaded, err := rules.FromFile(path)
		if err != nil {
			logger.Error("failed to load rules", "path", path, "error", err)
			return nil, err
		}
		logger.Debug("rules loaded", "path", path, "count", len(loaded))
		extra = append(extra, loaded...)
	}

	im, err := importer.New(importer.WithRules(extra...))
	if err != nil {
		logger.Error("failed to initialize importer", "error", err)
		return nil, err
	}
	return im, nil
}

// newReader builds an input reader honouring --max-size.
func newReader() (*source.Reader, error) {
	cfg := source.DefaultConfig()
	if s := viper.GetString("max_size"); s != "" {
		size, err := source.ParseSize(s)
		if err != nil {
			logger.Error("invalid max-size", "value", s, "error", err)
			return nil, err
		}
		cfg.MaxSize = size
	}
	return source.New(cfg), nil
}

// openStore opens the page database named by --db or the db config key.
func openStore() (*store.Store, error) {
	path := viper.GetString("db")
	logger.Debug("opening page database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		logger.Error("failed to open page database", "path", path, "error", err)
		return nil, err
	}
	return st, nil
}

// outputFile returns stdout or the file named by path, and a close func.
func outputFile(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		logger.Error("failed to create output file", "path", path, "error", err)
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
