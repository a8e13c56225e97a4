package commands

import (
	"fmt"

	"github.com/mosaicnetworks/scenegraph/src/version"
	"github.com/spf13/cobra"
)

// VersionCmd displays the version of scenegraph being used
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}
