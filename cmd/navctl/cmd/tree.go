package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"navmenus/internal/app"
	navhandler "navmenus/internal/navigation/handler"
	"navmenus/internal/navigation/models"
)

var treeMenu bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the decorated navigation tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
			var (
				root *models.NavigationItem
				err  error
			)
			if treeMenu {
				root, err = a.Navigation.Menu(cmd.Context())
			} else {
				root, err = a.Navigation.Navigation(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), navhandler.NewMenuItem(root), 0)
		})
	},
}

func init() {
	treeCmd.Flags().BoolVar(&treeMenu, "menu", false, "print the menu with generated archive nodes")
}

// printTree writes one node per line, indented by depth.
func printTree(w io.Writer, n navhandler.MenuItem, depth int) error {
	line := fmt.Sprintf("%s%s /%s", strings.Repeat("  ", depth), n.Codename, n.URLPath)
	switch {
	case n.RedirectPath != "":
		line += " -> /" + n.RedirectPath
	case n.ExternalURL != "":
		line += " -> " + n.ExternalURL
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := printTree(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
