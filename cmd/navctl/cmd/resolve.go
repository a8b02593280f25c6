package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"navmenus/internal/app"
	"navmenus/internal/navigation/models"
)

type resolveLine struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	models.ResolveResult
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url-path>...",
	Short: "Resolve URL paths against the navigation tree",
	Long: `resolve prints one JSON line per path with the kind of result and the
content item codenames or redirect target the server would answer with.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, path := range args {
				result, err := a.Navigation.Resolve(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", path, err)
				}
				line := resolveLine{Path: path, Kind: string(result.Kind()), ResolveResult: result}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			return nil
		})
	},
}
