package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/scenegraph/src/engine"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that starts a scenegraph engine
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the engine",
		PreRunE: loadConfig,
		RunE:    runEngine,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runEngine(cmd *cobra.Command, args []string) error {
	logger := _config.Scenegraph.Logger()

	e := engine.NewEngine(&_config.Scenegraph)

	if err := registerDemo(e, _config.TickInterval); err != nil {
		return err
	}

	if err := e.Init(); err != nil {
		logger.Error("Cannot initialize engine:", err)
		return err
	}

	if _config.Demo {
		if err := populateDemo(e, true); err != nil {
			return err
		}
	}

	e.RunAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig).Info("Shutting down")

	e.Shutdown()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	addEngineFlags(cmd)

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Scenegraph.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Scenegraph.NoService, "Disable HTTP service")

	// Demo
	cmd.Flags().Duration("tick-interval", _config.TickInterval, "Interval of the demo ticker task")
}
