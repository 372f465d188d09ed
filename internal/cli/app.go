package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ChipperFluff/McSquirrel/internal/config"
	"github.com/ChipperFluff/McSquirrel/internal/console"
	"github.com/ChipperFluff/McSquirrel/internal/persistence/record"
)

// app is what every command past setup needs: the loaded config, a record
// store configured from it and the console logger.
type app struct {
	cfg    config.Config
	store  *record.Store
	logger *console.Logger
	out    io.Writer
}

func (o *RootOptions) configPath() (string, error) {
	if o.ConfigPath != "" {
		return o.ConfigPath, nil
	}
	return config.DefaultPath()
}

func (o *RootOptions) newLogger(cmd *cobra.Command) *console.Logger {
	info := io.Discard
	if o.Verbose {
		info = cmd.ErrOrStderr()
	}
	return console.New(info, cmd.ErrOrStderr(), 0)
}

func loadApp(o *RootOptions, cmd *cobra.Command) (*app, error) {
	path, err := o.configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, o.environ)
	if err != nil {
		return nil, fmt.Errorf("load config (run `mcsquirrel setup` first?): %w", err)
	}
	comp, err := cfg.DefaultCompression()
	if err != nil {
		return nil, err
	}
	store := record.NewStore(comp, cfg.MaxDepth)
	store.MaxPayload = cfg.MaxPayload
	a := &app{
		cfg:    cfg,
		store:  store,
		logger: o.newLogger(cmd),
		out:    cmd.OutOrStdout(),
	}
	a.logger.Log(fmt.Sprintf("config %s, saves %s", path, cfg.Minecraft.Saves))
	return a, nil
}
