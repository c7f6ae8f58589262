package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
	"github.com/avoronkov/pdnaudit/internal/storage/jsonstore"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage named site lists for batch audits",
}

var sitesAddCmd = &cobra.Command{
	Use:   "add <name> <url>...",
	Short: "Add URLs to a site list, creating it when missing",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := jsonstore.NewSiteListStore(dataDir)
		if err != nil {
			return err
		}

		name, urls := args[0], args[1:]
		list, err := store.Append(cmd.Context(), name, urls)
		if errors.Is(err, sharederrors.ErrSiteListNotFound) {
			list, err = store.Create(cmd.Context(), name, urls)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s %s now has %d target(s)\n", colorSuccess("Saved:"), list.Name, len(list.URLs))
		return nil
	},
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all site lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := jsonstore.NewSiteListStore(dataDir)
		if err != nil {
			return err
		}

		lists, err := store.All(cmd.Context())
		if err != nil {
			return err
		}
		if len(lists) == 0 {
			fmt.Println("No site lists yet. Create one with: pdnaudit sites add <name> <url>")
			return nil
		}
		for _, list := range lists {
			fmt.Printf("  %-24s %3d target(s)  updated %s\n",
				list.Name, len(list.URLs), list.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sitesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the targets of a site list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := jsonstore.NewSiteListStore(dataDir)
		if err != nil {
			return err
		}

		list, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, sharederrors.ErrSiteListNotFound) {
				return &SiteListNotFoundError{Name: args[0]}
			}
			return err
		}

		fmt.Printf("%s %s (%d target(s))\n", colorInfo("Site list:"), list.Name, len(list.URLs))
		for _, u := range list.URLs {
			fmt.Printf("  %s\n", u)
		}
		return nil
	},
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a site list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := jsonstore.NewSiteListStore(dataDir)
		if err != nil {
			return err
		}

		if err := store.Remove(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, sharederrors.ErrSiteListNotFound) {
				return &SiteListNotFoundError{Name: args[0]}
			}
			return err
		}
		fmt.Printf("%s %s\n", colorSuccess("Removed:"), args[0])
		return nil
	},
}

func init() {
	sitesCmd.AddCommand(sitesAddCmd)
	sitesCmd.AddCommand(sitesListCmd)
	sitesCmd.AddCommand(sitesShowCmd)
	sitesCmd.AddCommand(sitesRemoveCmd)
}
