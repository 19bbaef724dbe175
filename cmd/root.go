package cmd

import (
	"fmt"

	"pixiv-novel-downloader/config"
	"pixiv-novel-downloader/downloader"
	"pixiv-novel-downloader/pixiv"
	"pixiv-novel-downloader/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var RootCmd = &cobra.Command{
	Use:          "pixiv-novel-downloader",
	Short:        "Download pixiv novels as plain text files",
	Long:         "Download pixiv novels by id, author, bookmark list, series or search query and convert them to plain text files",
	SilenceUsage: true,
}

type rootArgs struct {
	token     string
	output    string
	overwrite bool
	debug     bool
}

var rootFlags rootArgs

func init() {
	RootCmd.PersistentFlags().StringVar(&rootFlags.token, "token", "", "refresh token (overrides PIXIV_REFRESH_TOKEN)")
	RootCmd.PersistentFlags().StringVarP(&rootFlags.output, "output", "o", "", "output directory")
	RootCmd.PersistentFlags().BoolVar(&rootFlags.overwrite, "overwrite", false, "overwrite existing files")
	RootCmd.PersistentFlags().BoolVar(&rootFlags.debug, "debug", false, "enable debug logging")
}

// newDownloader wires config, logging and the HTTP stack for one command run.
func newDownloader() (*downloader.Downloader, *zap.Logger, error) {
	cfg := config.Load()
	if rootFlags.token != "" {
		cfg.RefreshToken = rootFlags.token
	}
	if rootFlags.output != "" {
		cfg.OutputDir = rootFlags.output
	}
	if rootFlags.debug {
		cfg.Debug = true
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	httpClient := utils.NewRestyClient(cfg.HTTPTimeout)
	auth := pixiv.NewAuthenticator(httpClient, pixiv.AuthOptions{RefreshToken: cfg.RefreshToken}, logger)
	client := pixiv.NewClient(httpClient, auth, pixiv.ClientOptions{PageSize: cfg.PageSize}, logger)

	dl := downloader.New(client, downloader.Options{
		OutputDir: cfg.OutputDir,
		CacheDir:  cfg.CacheDir,
		Overwrite: rootFlags.overwrite,
	}, logger)

	return dl, logger, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if debug {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.EncoderConfig.TimeKey = "timestamp"
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return logConfig.Build()
}

// finish prints the batch outcome and turns failures into a nonzero exit.
func finish(logger *zap.Logger, summary *downloader.Summary, err error) error {
	defer func() { _ = logger.Sync() }()

	if err != nil {
		return err
	}

	fmt.Printf("downloaded %v novels (batch %v)\n", len(summary.Written), summary.BatchID)
	for _, failure := range summary.Failures {
		if failure.NovelID != 0 {
			fmt.Printf("failed: novel %v: %v\n", failure.NovelID, failure.Err)
		} else {
			fmt.Printf("failed: %v\n", failure.Err)
		}
	}

	if len(summary.Failures) > 0 {
		return fmt.Errorf("%v of %v novels failed", len(summary.Failures), len(summary.Failures)+len(summary.Written))
	}
	return nil
}
