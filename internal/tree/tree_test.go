package tree

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/docforge/api"
	"github.com/agentic-research/docforge/internal/docgen"
)

func tplItem(location, format string, data map[string]any, persist bool) api.CompositionItem {
	return api.CompositionItem{
		Type: api.ItemTypeTemplate,
		Metadata: &api.ItemMeta{
			Resource: &api.Resource{
				OutputFormat: format,
				Location:     location,
				Data:         data,
				Persist:      persist,
			},
		},
	}
}

func statementRequest() *api.Request {
	return &api.Request{
		RequestID: "req-7",
		Outputs: []api.OutputGroup{
			{
				Type: "print",
				Composition: []api.CompositionItem{
					tplItem("blob@templates:statement.tpl", "pdf", map[string]any{"account": "42"}, true),
				},
			},
			{
				Type: "email",
				Composition: []api.CompositionItem{
					tplItem("http@cdn.example.com/cover.tpl", "pdf", map[string]any{"name": "Ada"}, false),
					{Type: "attachment-note"},
					tplItem("body.tpl", "html", map[string]any{"name": "Ada"}, false),
				},
			},
		},
	}
}

func TestFlattenTraversalOrder(t *testing.T) {
	jobs, err := Flatten(statementRequest(), nil)
	require.NoError(t, err)
	require.Len(t, jobs, 3, "only template items become jobs")

	assert.Equal(t, "blob@templates:statement.tpl", jobs[0].Address)
	assert.Equal(t, "http@cdn.example.com/cover.tpl", jobs[1].Address)
	assert.Equal(t, "body.tpl", jobs[2].Address)

	assert.Equal(t, "pdf", jobs[0].OutputFormat)
	assert.Equal(t, "html", jobs[2].OutputFormat)

	assert.True(t, jobs[0].Persist)
	assert.False(t, jobs[1].Persist)
	assert.Equal(t, map[string]any{"account": "42"}, jobs[0].Data)
}

func TestFlattenEmptyGroupRejectsRequest(t *testing.T) {
	req := statementRequest()
	req.Outputs = append(req.Outputs, api.OutputGroup{Type: "archive"})

	jobs, err := Flatten(req, nil)
	require.ErrorIs(t, err, ErrEmptyGroup)
	assert.Contains(t, err.Error(), "group 2")
	assert.Nil(t, jobs)
}

func TestFlattenTemplateWithoutResource(t *testing.T) {
	req := &api.Request{Outputs: []api.OutputGroup{{
		Composition: []api.CompositionItem{{Type: api.ItemTypeTemplate}},
	}}}

	_, err := Flatten(req, nil)
	require.ErrorIs(t, err, ErrMissingData)
}

func TestFlattenTemplateWithoutData(t *testing.T) {
	req := &api.Request{Outputs: []api.OutputGroup{{
		Composition: []api.CompositionItem{tplItem("a.tpl", "pdf", nil, false)},
	}}}

	_, err := Flatten(req, nil)
	require.ErrorIs(t, err, ErrMissingData)
}

func TestFlattenEmptyDataMapAllowed(t *testing.T) {
	req := &api.Request{Outputs: []api.OutputGroup{{
		Composition: []api.CompositionItem{tplItem("a.tpl", "pdf", map[string]any{}, false)},
	}}}

	jobs, err := Flatten(req, nil)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestFlattenOnlyBystanders(t *testing.T) {
	req := &api.Request{Outputs: []api.OutputGroup{{
		Composition: []api.CompositionItem{{Type: "note"}, {Type: "divider"}},
	}}}

	jobs, err := Flatten(req, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestFlattenNoGroups(t *testing.T) {
	jobs, err := Flatten(&api.Request{}, nil)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestFlattenExtractsAssets(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00")
	data := map[string]any{
		"name": "Ada",
		"images": map[string]any{
			"logo": base64.StdEncoding.EncodeToString(gif),
		},
	}
	req := &api.Request{Outputs: []api.OutputGroup{{
		Composition: []api.CompositionItem{tplItem("a.tpl", "html", data, false)},
	}}}

	ax, err := NewAssetExtractor([]string{"$.images"})
	require.NoError(t, err)

	jobs, err := Flatten(req, ax)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, gif, jobs[0].Assets["logo"])
	assert.Equal(t, "Ada", jobs[0].Data["name"])
	assert.NotContains(t, jobs[0].Data, "images", "asset container pruned from bindings")
	assert.Contains(t, data, "images", "request tree itself never mutated")
}

func TestAssetExtractorSkipsUndecodableEntries(t *testing.T) {
	ax, err := NewAssetExtractor([]string{"$.images"})
	require.NoError(t, err)

	payload := []byte{0x89, 'P', 'N', 'G'}
	bindings, assets := ax.Extract(map[string]any{
		"images": map[string]any{
			"ok":  base64.StdEncoding.EncodeToString(payload),
			"bad": "###not base64###",
			"num": 7,
		},
	})

	assert.Equal(t, payload, assets["ok"])
	assert.NotContains(t, assets, "bad")
	assert.NotContains(t, assets, "num")
	assert.NotContains(t, bindings, "images")
}

func TestAssetExtractorNoMatches(t *testing.T) {
	ax, err := NewAssetExtractor([]string{"$.images"})
	require.NoError(t, err)

	bindings, assets := ax.Extract(map[string]any{"name": "Ada"})
	assert.Equal(t, map[string]any{"name": "Ada"}, bindings)
	assert.Nil(t, assets)
}

func TestNewAssetExtractorBadPath(t *testing.T) {
	_, err := NewAssetExtractor([]string{"$["})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$[")
}

func TestReconcileRoundTrip(t *testing.T) {
	req := statementRequest()
	jobs, err := Flatten(req, nil)
	require.NoError(t, err)

	outcomes := []docgen.Outcome{
		{LocalPath: "/tmp/a.pdf", PersistedLocation: "blob@documents:2026/08/26/a.pdf"},
		{LocalPath: "/tmp/b.pdf"},
		{LocalPath: "/tmp/c.html"},
	}
	require.Len(t, outcomes, len(jobs))

	require.NoError(t, Reconcile(req, outcomes))

	assert.Equal(t, "blob@documents:2026/08/26/a.pdf",
		req.Outputs[0].Composition[0].Metadata.Result.Location)
	assert.Equal(t, "file@/tmp/b.pdf",
		req.Outputs[1].Composition[0].Metadata.Result.Location)
	assert.Equal(t, "file@/tmp/c.html",
		req.Outputs[1].Composition[2].Metadata.Result.Location)
	assert.Nil(t, req.Outputs[1].Composition[1].Metadata, "bystander items stay untouched")
}

func TestReconcileCreatesMissingResultSlots(t *testing.T) {
	req := &api.Request{Outputs: []api.OutputGroup{{
		Composition: []api.CompositionItem{tplItem("a.tpl", "pdf", map[string]any{"k": "v"}, false)},
	}}}
	require.Nil(t, req.Outputs[0].Composition[0].Metadata.Result)

	require.NoError(t, Reconcile(req, []docgen.Outcome{{LocalPath: "/tmp/a.pdf"}}))
	require.NotNil(t, req.Outputs[0].Composition[0].Metadata.Result)
	assert.Equal(t, "file@/tmp/a.pdf", req.Outputs[0].Composition[0].Metadata.Result.Location)
}

func TestReconcileMismatchLeavesTreeUntouched(t *testing.T) {
	for name, outcomes := range map[string][]docgen.Outcome{
		"too few":  {{LocalPath: "/tmp/a.pdf"}},
		"too many": {{LocalPath: "/a"}, {LocalPath: "/b"}, {LocalPath: "/c"}, {LocalPath: "/d"}},
	} {
		t.Run(name, func(t *testing.T) {
			req := statementRequest()
			err := Reconcile(req, outcomes)
			require.ErrorIs(t, err, ErrMismatch)
			for _, group := range req.Outputs {
				for _, item := range group.Composition {
					if item.Metadata != nil {
						assert.Nil(t, item.Metadata.Result)
					}
				}
			}
		})
	}
}

func TestReconcileEmptyTree(t *testing.T) {
	require.NoError(t, Reconcile(&api.Request{}, nil))
}

func TestLocationsFollowTraversalOrder(t *testing.T) {
	req := statementRequest()
	require.NoError(t, Reconcile(req, []docgen.Outcome{
		{PersistedLocation: "blob@documents:a.pdf"},
		{LocalPath: "/tmp/b.pdf"},
		{LocalPath: "/tmp/c.html"},
	}))

	assert.Equal(t, []string{
		"blob@documents:a.pdf",
		"file@/tmp/b.pdf",
		"file@/tmp/c.html",
	}, Locations(req))
}
