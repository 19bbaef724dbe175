package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download novels",
	Long:  "Download novels by id, author, bookmark list or series",
}

var downloadNovelCmd = &cobra.Command{
	Use:   "novel",
	Short: "Download a single novel by id",
	Long:  "Download a single novel by id",
	RunE:  runDownloadNovel,
}

var downloadAuthorCmd = &cobra.Command{
	Use:   "author",
	Short: "Download all novels of an author",
	Long:  "Download all novels of an author",
	RunE:  runDownloadAuthor,
}

var downloadBookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "Download bookmarked novels, default the authenticated user's public bookmarks",
	Long:  "Download bookmarked novels, default the authenticated user's public bookmarks",
	RunE:  runDownloadBookmarks,
}

var downloadSeriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Download all novels of a series",
	Long:  "Download all novels of a series",
	RunE:  runDownloadSeries,
}

type downloadNovelArgs struct {
	NovelId int64 `validate:"required"`
}

type downloadAuthorArgs struct {
	AuthorId int64 `validate:"required"`
}

type downloadBookmarksArgs struct {
	UserId   int64
	Restrict string
	Tag      string
}

type downloadSeriesArgs struct {
	SeriesId int64 `validate:"required"`
}

var (
	novelArgs     downloadNovelArgs
	authorArgs    downloadAuthorArgs
	bookmarksArgs downloadBookmarksArgs
	seriesArgs    downloadSeriesArgs
)

func init() {
	downloadNovelCmd.Flags().Int64VarP(&novelArgs.NovelId, "novel-id", "n", 0, "novel id")

	downloadAuthorCmd.Flags().Int64VarP(&authorArgs.AuthorId, "author-id", "a", 0, "author id")

	downloadBookmarksCmd.Flags().Int64VarP(&bookmarksArgs.UserId, "user-id", "u", 0, "user id (default: authenticated user)")
	downloadBookmarksCmd.Flags().StringVarP(&bookmarksArgs.Restrict, "restrict", "r", "public", "bookmark visibility (public or private)")
	downloadBookmarksCmd.Flags().StringVarP(&bookmarksArgs.Tag, "tag", "t", "", "filter by bookmark tag")

	downloadSeriesCmd.Flags().Int64VarP(&seriesArgs.SeriesId, "series-id", "s", 0, "series id")

	downloadCmd.AddCommand(downloadNovelCmd)
	downloadCmd.AddCommand(downloadAuthorCmd)
	downloadCmd.AddCommand(downloadBookmarksCmd)
	downloadCmd.AddCommand(downloadSeriesCmd)
	RootCmd.AddCommand(downloadCmd)
}

func runDownloadNovel(cmd *cobra.Command, args []string) error {
	if novelArgs.NovelId == 0 {
		return fmt.Errorf("novel id is required")
	}
	dl, logger, err := newDownloader()
	if err != nil {
		return err
	}
	summary, err := dl.DownloadNovel(cmd.Context(), novelArgs.NovelId)
	return finish(logger, summary, err)
}

func runDownloadAuthor(cmd *cobra.Command, args []string) error {
	if authorArgs.AuthorId == 0 {
		return fmt.Errorf("author id is required")
	}
	dl, logger, err := newDownloader()
	if err != nil {
		return err
	}
	summary, err := dl.DownloadAuthor(cmd.Context(), authorArgs.AuthorId)
	return finish(logger, summary, err)
}

func runDownloadBookmarks(cmd *cobra.Command, args []string) error {
	if bookmarksArgs.Restrict != "public" && bookmarksArgs.Restrict != "private" {
		return fmt.Errorf("restrict must be public or private")
	}
	dl, logger, err := newDownloader()
	if err != nil {
		return err
	}
	summary, err := dl.DownloadBookmarks(cmd.Context(), bookmarksArgs.UserId, bookmarksArgs.Restrict, bookmarksArgs.Tag)
	return finish(logger, summary, err)
}

func runDownloadSeries(cmd *cobra.Command, args []string) error {
	if seriesArgs.SeriesId == 0 {
		return fmt.Errorf("series id is required")
	}
	dl, logger, err := newDownloader()
	if err != nil {
		return err
	}
	summary, err := dl.DownloadSeries(cmd.Context(), seriesArgs.SeriesId)
	return finish(logger, summary, err)
}
