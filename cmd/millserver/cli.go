package main

import (
	"time"

	"github.com/spf13/cobra"
)

type serverConfig struct {
	host string
	port uint16

	inputDir  string
	outputDir string

	interval time.Duration

	stub  bool
	debug bool

	tlsCertPath string
	tlsKeyPath  string
}

func rootCmd() *cobra.Command {
	config := &serverConfig{}

	c := &cobra.Command{
		Use:     "millserver",
		Short:   "Websocket server for realtime parallel image batch processing",
		Example: "millserver --input ./input_images --debug",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(config)
		},
	}

	c.Flags().StringVar(&config.host, "host", "localhost", "Host to bind")
	c.Flags().Uint16Var(&config.port, "port", 8765, "Websocket server port")

	c.Flags().
		StringVar(&config.inputDir, "input", "input_images", "Directory of images to process")

	c.Flags().
		StringVar(&config.outputDir, "output", "output_images", "Directory for processed images")

	c.Flags().DurationVar(
		&config.interval,
		"interval",
		800*time.Millisecond,
		"System telemetry sampling interval",
	)

	c.Flags().
		BoolVar(&config.stub, "stub", false, "Disable real image processing and report synthetic failures")

	c.Flags().BoolVar(&config.debug, "debug", false, "Enable debug logs")

	c.Flags().
		StringVar(&config.tlsCertPath, "tls-cert", "", "Path to TLS certificate for serving wss")

	c.Flags().
		StringVar(&config.tlsKeyPath, "tls-key", "", "Path to TLS private key for serving wss")

	return c
}
