package tree

import (
	"encoding/base64"
	"fmt"
	"log"

	"github.com/ohler55/ojg/jp"
)

// AssetExtractor splits binary payloads out of request bindings.
//
// Clients embed images and similar assets as base64 strings inside the
// data map (under $.images by default). Engines want raw bytes, and
// templates must never see the base64 blobs, so extraction prunes the
// matched containers from the bindings handed to the engine.
type AssetExtractor struct {
	exprs []jp.Expr
}

// NewAssetExtractor compiles the configured JSONPath expressions. Each
// path should select maps of asset name to base64 payload.
func NewAssetExtractor(paths []string) (*AssetExtractor, error) {
	exprs := make([]jp.Expr, 0, len(paths))
	for _, p := range paths {
		x, err := jp.ParseString(p)
		if err != nil {
			return nil, fmt.Errorf("invalid asset path %q: %w", p, err)
		}
		exprs = append(exprs, x)
	}
	return &AssetExtractor{exprs: exprs}, nil
}

// Extract returns bindings with asset containers pruned, plus the decoded
// assets by name. The input map is never mutated. Entries that are not
// base64 strings are skipped with a log line rather than failing the job.
func (ax *AssetExtractor) Extract(data map[string]any) (map[string]any, map[string][]byte) {
	if ax == nil || len(ax.exprs) == 0 || len(data) == 0 {
		return data, nil
	}
	bindings := deepCopyMap(data)
	assets := make(map[string][]byte)
	for _, x := range ax.exprs {
		for _, match := range x.Get(bindings) {
			m, ok := match.(map[string]any)
			if !ok {
				log.Printf("tree: asset path %s matched %T, want a map of base64 strings", x, match)
				continue
			}
			for name, v := range m {
				s, ok := v.(string)
				if !ok {
					log.Printf("tree: asset %q is not a string, skipping", name)
					continue
				}
				payload, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					log.Printf("tree: asset %q is not valid base64, skipping: %v", name, err)
					continue
				}
				assets[name] = payload
			}
		}
		if err := x.Del(bindings); err != nil {
			log.Printf("tree: prune %s from bindings: %v", x, err)
		}
	}
	if len(assets) == 0 {
		assets = nil
	}
	return bindings, assets
}

func deepCopyMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = deepCopyValue(v)
	}
	return c
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		c := make([]any, len(t))
		for i, vv := range t {
			c[i] = deepCopyValue(vv)
		}
		return c
	default:
		return v
	}
}
