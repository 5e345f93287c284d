// oskimd is the on-screen keyboard input daemon.
//
// It serves the keyboard UI over the session bus, translates on-screen
// key gestures into virtual key events and keeps the keyboard level in
// step with Caps Lock and the IBus Hiragana input mode.
package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"oskim/internal/config"
	"oskim/internal/logging"
)

// CLI is the command line of oskimd.
type CLI struct {
	ConfigFile string `name:"config" short:"c" type:"path" help:"Configuration file (TOML, JSON or YAML)." env:"OSKIM_CONFIG"`
	LogLevel   string `name:"log-level" help:"Override the configured log level."`

	Serve       ServeCmd       `cmd:"" default:"1" help:"Run the keyboard service."`
	Rows        RowsCmd        `cmd:"" help:"Print the padding keys of a level."`
	CheckLayout CheckLayoutCmd `cmd:"" help:"Validate a remap table resource."`
	Config      ConfigCmd      `cmd:"" help:"Manage the configuration file."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("oskimd"),
		kong.Description("On-screen keyboard input daemon"),
		kong.UsageOnError(),
	)

	path := cli.ConfigFile
	if path == "" {
		path = config.FindConfigFile()
	}
	loader := config.NewLoader(path)

	cfg := config.DefaultConfig()
	if !strings.HasPrefix(ctx.Command(), "config init") {
		loaded, err := loader.Load()
		if err != nil {
			_, _ = os.Stderr.WriteString("oskimd: " + err.Error() + "\n")
			os.Exit(2)
		}
		cfg = loaded
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	logCfg, err := cfg.LoggerConfig()
	if err != nil {
		_, _ = os.Stderr.WriteString("oskimd: " + err.Error() + "\n")
		os.Exit(2)
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer logger.Close()

	ctx.Bind(logger, logger.Logger, cfg, loader)
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
