// Package config reads the YAML configuration of the pgstore tool.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	goosedisk "github.com/tchajed/goose/machine/disk"
	"gopkg.in/yaml.v2"

	"github.com/pandagen/blockstore/disk"
)

const (
	DefaultBlocks   uint64 = 256 // 1 MiB
	DefaultLogLevel uint64 = 1
)

// Backend selects how the device file is accessed.
type Backend string

const (
	// BackendFile uses pread/pwrite/fsync through the page cache.
	BackendFile Backend = "file"
	// BackendDirect opens the file with O_DIRECT.
	BackendDirect Backend = "direct"
	// BackendGoose goes through goose's file disk.
	BackendGoose Backend = "goose"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case BackendFile, BackendDirect, BackendGoose:
		return b, nil
	case "":
		return BackendFile, nil
	default:
		return "", errors.Errorf("unknown backend %q", s)
	}
}

type Config struct {
	// Device is the path of the backing file.
	Device string
	// Blocks is the device size used by format.
	Blocks   uint64
	Backend  Backend
	LogLevel uint64
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Blocks:   DefaultBlocks,
		Backend:  BackendFile,
		LogLevel: DefaultLogLevel,
	}
}

// Parse fills c from YAML. Missing keys keep their defaults.
func (c *Config) Parse(data []byte) error {
	var aux struct {
		Device   string  `yaml:"device"`
		Blocks   *uint64 `yaml:"blocks"`
		Backend  string  `yaml:"backend"`
		LogLevel *uint64 `yaml:"log_level"`
	}
	if err := yaml.UnmarshalStrict(data, &aux); err != nil {
		return errors.Wrap(err, "parse config")
	}

	c.Device = aux.Device
	if aux.Backend != "" {
		b, err := ParseBackend(aux.Backend)
		if err != nil {
			return errors.WithMessage(err, "backend")
		}
		c.Backend = b
	}
	if aux.Blocks != nil {
		c.Blocks = *aux.Blocks
	}
	if aux.LogLevel != nil {
		c.LogLevel = *aux.LogLevel
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.Blocks < 2 {
		return errors.Errorf("blocks: %d is too small", c.Blocks)
	}
	if c.Blocks > ^uint64(0)/disk.BlockSize {
		return errors.Errorf("blocks: %d does not fit in a file", c.Blocks)
	}
	return nil
}

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c := Default()
	if err := c.Parse(data); err != nil {
		return nil, errors.WithMessagef(err, "%s", path)
	}
	return c, nil
}

// OpenDisk opens the configured device. With create set, the file is
// created if needed and sized to c.Blocks; otherwise it must exist and its
// current size is kept.
func (c *Config) OpenDisk(create bool) (disk.Disk, error) {
	if c.Device == "" {
		return nil, errors.New("no device configured")
	}
	nblocks := c.Blocks
	if !create {
		st, err := os.Stat(c.Device)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if st.Mode().IsRegular() {
			nblocks = uint64(st.Size()) / disk.BlockSize
		}
	}
	switch c.Backend {
	case BackendDirect:
		return disk.NewDirectDisk(c.Device, nblocks)
	case BackendGoose:
		d, err := goosedisk.NewFileDisk(c.Device, nblocks)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", c.Device)
		}
		return disk.FromGoose(d), nil
	default:
		return disk.NewFileDisk(c.Device, nblocks)
	}
}
