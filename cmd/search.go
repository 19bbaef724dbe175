package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type searchArgs struct {
	Word   string `validate:"required"`
	Target string
	Sort   string
}

var sArgs searchArgs

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for novels and download the results",
	Long:  "Search for novels and download the results",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&sArgs.Word, "word", "w", "", "search keyword")
	searchCmd.Flags().StringVar(&sArgs.Target, "target", "text", "search target (text, keyword or tag)")
	searchCmd.Flags().StringVar(&sArgs.Sort, "sort", "date_desc", "sort order (date_desc, date_asc or popular_desc)")
	RootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if sArgs.Word == "" {
		return fmt.Errorf("search word is required")
	}
	dl, logger, err := newDownloader()
	if err != nil {
		return err
	}
	summary, err := dl.SearchAndDownload(cmd.Context(), sArgs.Word, sArgs.Target, sArgs.Sort)
	return finish(logger, summary, err)
}
