package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"navmenus/internal/app"
)

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "List addressable pages with their last modification time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
			entries, err := a.Navigation.Sitemap(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		})
	},
}
