package commands

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/scenegraph/src/engine"
	"github.com/mosaicnetworks/scenegraph/src/snapshot"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//NewDumpCmd returns the command that prints a scene snapshot
func NewDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dump",
		Short:   "Print the stored or demo scene",
		PreRunE: loadConfig,
		RunE:    dumpScene,
	}
	AddDumpFlags(cmd)
	return cmd
}

func dumpScene(cmd *cobra.Command, args []string) error {
	_config.Scenegraph.NoService = true

	e := engine.NewEngine(&_config.Scenegraph)

	if err := registerDemo(e, _config.TickInterval); err != nil {
		return err
	}

	if err := e.Init(); err != nil {
		return err
	}
	defer func() {
		e.Coordinator.Shutdown()
		e.Store.Close()
	}()

	if _config.Demo {
		if err := populateDemo(e, false); err != nil {
			return err
		}
	}

	s, err := e.Coordinator.SceneSnapshot()
	if err != nil {
		return err
	}

	out, err := encodeSnapshot(s, _config.Format)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(out)
	return err
}

// encodeSnapshot renders s as json, yaml or cbor.
func encodeSnapshot(s snapshot.Snapshot, format string) ([]byte, error) {
	switch format {
	case "json":
		out, err := snapshot.NewJSONCodec().Marshal(s)
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "yaml":
		return yaml.Marshal(s)
	case "cbor":
		c, err := snapshot.NewCBORCodec()
		if err != nil {
			return nil, err
		}
		return c.Marshal(s)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

//AddDumpFlags adds flags to the Dump command
func AddDumpFlags(cmd *cobra.Command) {
	addEngineFlags(cmd)
	cmd.Flags().StringP("format", "f", _config.Format, "Output format: json, yaml or cbor")
}
