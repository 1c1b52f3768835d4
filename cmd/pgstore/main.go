// Command pgstore formats and inspects a file-backed object store, and moves
// objects in and out of it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pandagen/blockstore/config"
	"github.com/pandagen/blockstore/jrnl"
	"github.com/pandagen/blockstore/util"
)

var (
	configPath string
	devicePath string
	nblocks    uint64
	backend    string
	logLevel   uint64
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	util.SetLogger(logger)
	err = rootCmd().Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "pgstore",
		Short:         "Crash-safe transactional object store on a block device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := c.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "path of a YAML configuration file")
	f.StringVarP(&devicePath, "device", "d", "", "path of the device file")
	f.Uint64Var(&nblocks, "blocks", config.DefaultBlocks, "device size in 4 KiB blocks (format only)")
	f.StringVar(&backend, "backend", string(config.BackendFile), "device access: file, direct (O_DIRECT) or goose")
	f.Uint64Var(&logLevel, "log-level", config.DefaultLogLevel, "debug verbosity")

	c.AddCommand(newFormatCmd(), newInspectCmd(), newPutCmd(), newGetCmd(), newLsCmd(), newVerifyCmd())
	return c
}

// loadConfig merges the configuration file, if any, with the flags that
// were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	cfg := config.Default()
	if f.Changed("config") {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if f.Changed("device") {
		cfg.Device = devicePath
	}
	if f.Changed("blocks") {
		cfg.Blocks = nblocks
	}
	if f.Changed("backend") {
		b, err := config.ParseBackend(backend)
		if err != nil {
			return nil, err
		}
		cfg.Backend = b
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	util.SetDebug(cfg.LogLevel)
	return cfg, nil
}

// openStore opens an existing store and runs recovery.
func openStore(cmd *cobra.Command) (*jrnl.Storage, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	d, err := cfg.OpenDisk(false)
	if err != nil {
		return nil, err
	}
	s, err := jrnl.Open(d)
	if err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}
