// Package config loads the YAML runtime configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/device"
	"github.com/batchflow-ml/batchflow/internal/engine/cpu"
	"github.com/batchflow-ml/batchflow/internal/engine/native"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Pool struct {
		Workers int `yaml:"workers"`
	} `yaml:"pool"`
	Metrics struct {
		ListenAddress string `yaml:"listenAddress"`
	} `yaml:"metrics"`
	Pipeline struct {
		BatchSize   int                   `yaml:"batchSize"`
		MultiplyAdd cpu.MultiplyAddConfig `yaml:"multiplyAdd"`
		Native      NativeOperatorConfig  `yaml:"native"`
	} `yaml:"pipeline"`
}

// NativeOperatorConfig declares a native-kernel operator in the file
// format: element types by name, entry points resolved at runtime.
type NativeOperatorConfig struct {
	BatchProcessing bool     `yaml:"batchProcessing"`
	InTypes         []string `yaml:"inTypes"`
	OutTypes        []string `yaml:"outTypes"`
	InsNDim         []int    `yaml:"insNdim"`
	OutsNDim        []int    `yaml:"outsNdim"`
	Blocks          [3]int   `yaml:"blocks"`
	ThreadsPerBlock [3]int   `yaml:"threadsPerBlock"`
}

// Resolve binds the declaration to kernel entry points and parses the
// type names. setupFn may be zero for mirror-mode operators.
func (c *NativeOperatorConfig) Resolve(runFn, setupFn device.Kernel) (native.Config, error) {
	cfg := native.Config{
		RunFn:           runFn,
		SetupFn:         setupFn,
		BatchProcessing: c.BatchProcessing,
		InsNDim:         c.InsNDim,
		OutsNDim:        c.OutsNDim,
		Blocks:          device.Dim3(c.Blocks),
		ThreadsPerBlock: device.Dim3(c.ThreadsPerBlock),
	}
	for i, name := range c.InTypes {
		dt, err := batch.ParseDataType(name)
		if err != nil {
			return native.Config{}, fmt.Errorf("inTypes at index %d: %w", i, err)
		}
		cfg.InTypes = append(cfg.InTypes, dt)
	}
	for i, name := range c.OutTypes {
		dt, err := batch.ParseDataType(name)
		if err != nil {
			return native.Config{}, fmt.Errorf("outTypes at index %d: %w", i, err)
		}
		cfg.OutTypes = append(cfg.OutTypes, dt)
	}
	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
