package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxvaer/cmsid/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cmsid", version.Version)
	},
}
