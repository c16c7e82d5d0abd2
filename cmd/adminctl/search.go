package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"studio/admin/internal/content"
	"studio/admin/internal/search"
)

// searchCmd groups search index commands.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Manage the Meilisearch index",
}

// searchReindexCmd pushes every searchable record to Meilisearch.
var searchReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the document store",
	Args:  cobra.NoArgs,
	RunE:  runSearchReindex,
}

func init() {
	searchCmd.AddCommand(searchReindexCmd)
}

func runSearchReindex(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.MeiliURL == "" {
		return errors.New("MEILI_URL is not set")
	}
	kinds := []content.Kind{content.Projects, content.Books, content.Press, content.News}
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, kind.Name)
	}

	meili := search.NewMeili(e.cfg.MeiliURL, e.cfg.MeiliMasterKey, names, e.logger)
	service := search.NewService(meili, e.store, kinds, e.logger)
	defer service.Close()

	if !meili.Healthy() {
		return fmt.Errorf("meilisearch at %s is not healthy", e.cfg.MeiliURL)
	}

	count, err := service.ReindexAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records\n", count)
	return nil
}
