package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pixiv-novel-downloader/model"
	"pixiv-novel-downloader/pixiv"
	"pixiv-novel-downloader/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Failure is one novel that could not be downloaded during a batch.
type Failure struct {
	NovelID int64
	Err     error
}

// Summary is the result of one download batch. Per-record failures never
// abort the batch; they are collected here instead.
type Summary struct {
	BatchID  string
	Written  []string
	Failures []Failure
}

type Options struct {
	OutputDir string
	CacheDir  string
	Overwrite bool
}

// Downloader drives the client + converter and writes one .txt per novel.
type Downloader struct {
	client    *pixiv.Client
	logger    *zap.Logger
	outputDir string
	cacheDir  string
	overwrite bool
}

func New(client *pixiv.Client, opts Options, logger *zap.Logger) *Downloader {
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(opts.OutputDir, ".cache")
	}
	return &Downloader{
		client:    client,
		logger:    logger,
		outputDir: opts.OutputDir,
		cacheDir:  cacheDir,
		overwrite: opts.Overwrite,
	}
}

func (d *Downloader) DownloadNovel(ctx context.Context, novelID int64) (*Summary, error) {
	d.logger.Info("downloading novel", zap.Int64("novel_id", novelID))
	return d.run(ctx, d.client.FetchNovel(novelID), d.outputDir)
}

func (d *Downloader) DownloadAuthor(ctx context.Context, authorID int64) (*Summary, error) {
	d.logger.Info("downloading author novels", zap.Int64("author_id", authorID))
	dir := filepath.Join(d.outputDir, fmt.Sprintf("user_%v", authorID))
	return d.run(ctx, d.client.FetchAuthorNovels(authorID), dir)
}

func (d *Downloader) DownloadBookmarks(ctx context.Context, userID int64, restrict, tag string) (*Summary, error) {
	d.logger.Info("downloading bookmarked novels",
		zap.Int64("user_id", userID),
		zap.String("restrict", restrict),
		zap.String("tag", tag),
	)
	dir := filepath.Join(d.outputDir, "bookmarks_"+restrict)
	if tag != "" {
		dir = filepath.Join(dir, utils.CleanDirName(tag))
	}
	return d.run(ctx, d.client.FetchBookmarkedNovels(userID, restrict, tag), dir)
}

func (d *Downloader) DownloadSeries(ctx context.Context, seriesID int64) (*Summary, error) {
	d.logger.Info("downloading series", zap.Int64("series_id", seriesID))
	dir := filepath.Join(d.outputDir, fmt.Sprintf("series_%v", seriesID))
	summary, err := d.run(ctx, d.client.FetchSeriesNovels(seriesID), dir)
	if err == nil && len(summary.Written) > 0 {
		d.writeSeriesIndex(dir, seriesID, summary)
	}
	return summary, err
}

// writeSeriesIndex records the reading order next to the downloaded files.
// Best effort, like the record cache.
func (d *Downloader) writeSeriesIndex(dir string, seriesID int64, summary *Summary) {
	var b strings.Builder
	fmt.Fprintf(&b, "Series %v\n\n", seriesID)
	for i, path := range summary.Written {
		fmt.Fprintf(&b, "%v. %v\n", i+1, filepath.Base(path))
	}

	path := filepath.Join(dir, "_index.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		d.logger.Debug("failed to write series index", zap.Error(err))
		return
	}
	d.logger.Info("series index saved", zap.String("path", path))
}

func (d *Downloader) SearchAndDownload(ctx context.Context, word, target, sort string) (*Summary, error) {
	d.logger.Info("searching and downloading novels",
		zap.String("word", word),
		zap.String("target", target),
		zap.String("sort", sort),
	)
	dir := filepath.Join(d.outputDir, "search_"+utils.CleanDirName(word))
	return d.run(ctx, d.client.SearchNovels(word, target, sort), dir)
}

// run consumes the iterator to exhaustion. An AuthError is fatal; everything
// else is recorded and the batch keeps going.
func (d *Downloader) run(ctx context.Context, iter *pixiv.NovelIter, dir string) (*Summary, error) {
	batch, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate batch id: %w", err)
	}
	summary := &Summary{BatchID: batch.String()}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	for {
		record, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			var authErr *pixiv.AuthError
			if errors.As(err, &authErr) {
				return summary, err
			}
			var recErr *pixiv.RecordError
			if errors.As(err, &recErr) {
				d.logger.Error("failed to fetch novel",
					zap.Int64("novel_id", recErr.NovelID),
					zap.Error(err),
				)
				summary.Failures = append(summary.Failures, Failure{NovelID: recErr.NovelID, Err: err})
				continue
			}
			// Listing failure: the sequence is over, keep what we have.
			d.logger.Error("failed to list novels", zap.Error(err))
			summary.Failures = append(summary.Failures, Failure{Err: err})
			break
		}

		path, err := d.writeNovel(record, dir)
		if err != nil {
			d.logger.Error("failed to write novel",
				zap.Int64("novel_id", record.ID),
				zap.Error(err),
			)
			summary.Failures = append(summary.Failures, Failure{NovelID: record.ID, Err: err})
			continue
		}
		summary.Written = append(summary.Written, path)
	}

	d.logger.Info("batch finished",
		zap.String("batch_id", summary.BatchID),
		zap.Int("succeeded", len(summary.Written)),
		zap.Int("failed", len(summary.Failures)),
	)
	return summary, nil
}

func (d *Downloader) writeNovel(record *model.NovelRecord, dir string) (string, error) {
	d.cacheRecord(record)

	name := utils.CleanFileName(fmt.Sprintf("[%v] %v", record.ID, record.Title)) + ".txt"
	path := filepath.Join(dir, name)

	if !d.overwrite {
		if _, err := os.Stat(path); err == nil {
			d.logger.Info("file exists, skipping", zap.String("path", path))
			return path, nil
		}
	}

	if err := os.WriteFile(path, []byte(FormatNovel(record)), 0644); err != nil {
		return "", fmt.Errorf("failed to write novel file: %w", err)
	}

	d.logger.Info("novel saved",
		zap.Int64("novel_id", record.ID),
		zap.String("path", path),
	)
	return path, nil
}

// cacheRecord keeps the raw record as JSON next to the output. Best effort:
// a cache failure never fails the download.
func (d *Downloader) cacheRecord(record *model.NovelRecord) {
	if err := os.MkdirAll(d.cacheDir, 0755); err != nil {
		d.logger.Debug("failed to create cache directory", zap.Error(err))
		return
	}
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		d.logger.Debug("failed to marshal record", zap.Error(err))
		return
	}
	path := filepath.Join(d.cacheDir, fmt.Sprintf("%v.json", record.ID))
	if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
		d.logger.Debug("failed to write cache file", zap.Error(err))
	}
}
