package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for scenegraph
var RootCmd = &cobra.Command{
	Use:              "scenegraph",
	Short:            "multi-threaded scene graph engine",
	TraverseChildren: true,
}
