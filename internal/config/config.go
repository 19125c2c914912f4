// Package config loads docforge service configuration from an HCL file.
// Every field has a default, so a missing file or an empty one is valid.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the root configuration document.
type Config struct {
	Cache    *CacheConfig    `hcl:"cache,block"`
	Fetch    *FetchConfig    `hcl:"fetch,block"`
	Render   *RenderConfig   `hcl:"render,block"`
	Generate *GenerateConfig `hcl:"generate,block"`
	Store    *StoreConfig    `hcl:"store,block"`
	Server   *ServerConfig   `hcl:"server,block"`
	Ledger   *LedgerConfig   `hcl:"ledger,block"`
}

// CacheConfig controls the template cache directory and freshness window.
type CacheConfig struct {
	Dir string `hcl:"dir,optional"`
	TTL string `hcl:"ttl,optional"` // duration string, e.g. "2h"

	ttl time.Duration
}

// TTLDuration returns the parsed freshness window.
func (c *CacheConfig) TTLDuration() time.Duration { return c.ttl }

// FetchConfig controls template downloads.
type FetchConfig struct {
	ConnectTimeout string `hcl:"connect_timeout,optional"`
	ReadTimeout    string `hcl:"read_timeout,optional"`
	Bucket         string `hcl:"bucket,optional"` // blob downloader source bucket

	connectTimeout time.Duration
	readTimeout    time.Duration
}

// ConnectTimeoutDuration returns the parsed dial timeout.
func (c *FetchConfig) ConnectTimeoutDuration() time.Duration { return c.connectTimeout }

// ReadTimeoutDuration returns the parsed whole-request timeout.
func (c *FetchConfig) ReadTimeoutDuration() time.Duration { return c.readTimeout }

// RenderConfig controls format dispatch and the external PDF converter.
type RenderConfig struct {
	DefaultFormat string `hcl:"default_format,optional"`
	// PDFConverter is the converter argv. Placeholders {{template}},
	// {{bindings}} and {{output}} are substituted per job.
	PDFConverter []string `hcl:"pdf_converter,optional"`
	// AssetsPaths are JSONPath expressions locating embedded binary
	// assets inside the variable-data payload.
	AssetsPaths []string `hcl:"assets_paths,optional"`
}

// GenerateConfig controls job execution.
type GenerateConfig struct {
	Workers     int    `hcl:"workers,optional"`
	ArtifactDir string `hcl:"artifact_dir,optional"`
}

// StoreConfig controls the document store used for persistence.
type StoreConfig struct {
	Root   string `hcl:"root,optional"` // directory store root
	Bucket string `hcl:"bucket,optional"`
	Prefix string `hcl:"prefix,optional"`
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	Addr string `hcl:"addr,optional"`
}

// LedgerConfig controls the generation ledger.
type LedgerConfig struct {
	Path     string `hcl:"path,optional"`
	Disabled bool   `hcl:"disabled,optional"`
}

// Default returns a fully-populated configuration.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.normalize(); err != nil {
		panic(err) // defaults are constants and always parse
	}
	return cfg
}

// Load reads the HCL file at path and applies defaults to everything the
// file leaves unset. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg := &Config{}
	if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	tmp := os.TempDir()

	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(tmp, "docforge-templates")
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "2h"
	}
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	c.Cache.ttl = ttl

	if c.Fetch == nil {
		c.Fetch = &FetchConfig{}
	}
	if c.Fetch.ConnectTimeout == "" {
		c.Fetch.ConnectTimeout = "10s"
	}
	if c.Fetch.ReadTimeout == "" {
		c.Fetch.ReadTimeout = "30s"
	}
	if c.Fetch.Bucket == "" {
		c.Fetch.Bucket = "templates"
	}
	if c.Fetch.connectTimeout, err = time.ParseDuration(c.Fetch.ConnectTimeout); err != nil {
		return fmt.Errorf("fetch.connect_timeout: %w", err)
	}
	if c.Fetch.readTimeout, err = time.ParseDuration(c.Fetch.ReadTimeout); err != nil {
		return fmt.Errorf("fetch.read_timeout: %w", err)
	}

	if c.Render == nil {
		c.Render = &RenderConfig{}
	}
	if c.Render.DefaultFormat == "" {
		c.Render.DefaultFormat = "pdf"
	}
	if c.Render.AssetsPaths == nil {
		c.Render.AssetsPaths = []string{"$.images"}
	}

	if c.Generate == nil {
		c.Generate = &GenerateConfig{}
	}
	if c.Generate.Workers == 0 {
		c.Generate.Workers = 4
	}
	if c.Generate.Workers < 1 {
		return fmt.Errorf("generate.workers must be at least 1, got %d", c.Generate.Workers)
	}
	if c.Generate.ArtifactDir == "" {
		c.Generate.ArtifactDir = filepath.Join(tmp, "docforge-artifacts")
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Store.Root == "" {
		c.Store.Root = filepath.Join(tmp, "docforge-store")
	}
	if c.Store.Bucket == "" {
		c.Store.Bucket = "documents"
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = "generated"
	}

	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.Ledger == nil {
		c.Ledger = &LedgerConfig{}
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = filepath.Join(tmp, "docforge-ledger.db")
	}

	return nil
}
