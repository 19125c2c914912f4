package cmd

import (
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/agentic-research/docforge/internal/blob"
	"github.com/agentic-research/docforge/internal/cache"
	"github.com/agentic-research/docforge/internal/config"
	"github.com/agentic-research/docforge/internal/docgen"
	"github.com/agentic-research/docforge/internal/fetch"
	"github.com/agentic-research/docforge/internal/ledger"
	"github.com/agentic-research/docforge/internal/pipeline"
	"github.com/agentic-research/docforge/internal/render"
	"github.com/agentic-research/docforge/internal/resolve"
	"github.com/agentic-research/docforge/internal/tree"
)

// components is the wired object graph shared by the serve, generate,
// batch, and mcp commands.
type components struct {
	cfg      *config.Config
	cache    *cache.Cache
	resolver *resolve.Resolver
	pipe     *pipeline.Pipeline
	ledger   *ledger.Ledger // nil when recording is disabled
}

func buildComponents(cfg *config.Config) (*components, error) {
	tc, err := cache.Open(cfg.Cache.Dir, cfg.Cache.TTLDuration())
	if err != nil {
		return nil, err
	}

	// One directory store backs both the template source bucket and the
	// generated-document bucket; real object stores implement blob.Store
	// elsewhere.
	store := blob.NewDirStore(osfs.New(cfg.Store.Root))

	client := fetch.NewHTTPClient(cfg.Fetch.ConnectTimeoutDuration(), cfg.Fetch.ReadTimeoutDuration())
	registry := fetch.NewRegistry(
		fetch.NewBlobDownloader(store, cfg.Fetch.Bucket),
		fetch.NewHTTPDownloader("http", client),
		fetch.NewHTTPDownloader("https", client),
		fetch.NewFileDownloader(),
	)
	resolver := resolve.New(tc, registry)

	engines := render.NewRegistry(render.ParseFormat(cfg.Render.DefaultFormat, render.PDF))
	engines.Register(render.PDF, render.NewExecEngine(cfg.Render.PDFConverter))
	engines.Register(render.HTML, render.NewHTMLEngine())
	engines.Register(render.TXT, render.NewTextEngine())

	docs := blob.NewDocumentStore(store, cfg.Store.Bucket, cfg.Store.Prefix)
	gen := docgen.New(resolver, engines, docs, cfg.Generate.ArtifactDir, cfg.Generate.Workers)

	assets, err := tree.NewAssetExtractor(cfg.Render.AssetsPaths)
	if err != nil {
		_ = tc.Close()
		return nil, err
	}

	var led *ledger.Ledger
	var rec pipeline.Recorder
	if !cfg.Ledger.Disabled {
		led, err = ledger.Open(cfg.Ledger.Path)
		if err != nil {
			_ = tc.Close()
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		rec = led
	}

	return &components{
		cfg:      cfg,
		cache:    tc,
		resolver: resolver,
		pipe:     pipeline.New(gen, assets, rec),
		ledger:   led,
	}, nil
}

func (c *components) close() {
	if c.ledger != nil {
		_ = c.ledger.Close()
	}
	_ = c.cache.Close()
}
