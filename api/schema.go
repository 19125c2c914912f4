// Package api defines the wire types exchanged with docforge transports:
// the document request tree, the batch envelope, and structured errors.
package api

import "time"

// ItemTypeTemplate tags the composition items that produce a document.
// Items carrying any other type tag pass through generation untouched.
const ItemTypeTemplate = "template"

// Request is the root of a document request tree. The tree arrives from a
// transport, is traversed in order during generation, and is returned with
// every template item's result location filled in.
type Request struct {
	// RequestID is an optional caller-supplied correlation id.
	RequestID string `json:"request_id,omitempty"`
	// Outputs are the ordered output groups of the request.
	Outputs []OutputGroup `json:"outputs"`
}

// OutputGroup is one named bundle of composition items.
type OutputGroup struct {
	// Type labels the group (informational, e.g. "print", "email").
	Type string `json:"type,omitempty"`
	// Composition is the ordered list of items in this group.
	// A group that declares no items is malformed.
	Composition []CompositionItem `json:"composition"`
}

// CompositionItem is one leaf unit of work inside an output group.
type CompositionItem struct {
	// Type tags the item; only "template" items generate documents.
	Type string `json:"type"`
	// Metadata carries the item's source and result descriptors.
	Metadata *ItemMeta `json:"metadata,omitempty"`
}

// ItemMeta groups a composition item's source and result descriptors.
type ItemMeta struct {
	// Resource describes the template to render and its bindings.
	Resource *Resource `json:"resource,omitempty"`
	// Result receives the generated document's location.
	Result *ResultRef `json:"result,omitempty"`
}

// Resource describes one template source.
type Resource struct {
	// InputFormat is the template's own format (informational).
	InputFormat string `json:"input_format,omitempty"`
	// OutputFormat selects the render engine (pdf, html, txt).
	// Matched case-insensitively; unknown values fall back to the
	// configured default.
	OutputFormat string `json:"output_format,omitempty"`
	// Location is the template address (blob@…, http@…, file@…, or a
	// bare local name).
	Location string `json:"location"`
	// Data holds the variable bindings for rendering. Required on
	// template items.
	Data map[string]any `json:"data,omitempty"`
	// Persist requests upload of the generated document to the
	// document store. Absent means false.
	Persist bool `json:"persist,omitempty"`
}

// ResultRef is the mutable result slot of a composition item.
type ResultRef struct {
	// Location of the generated document: the persisted location when
	// persistence succeeded, otherwise the local artifact path.
	Location string `json:"location,omitempty"`
}

// BatchRequest is the envelope for the batch transport: independent
// request trees processed with per-record error isolation.
type BatchRequest struct {
	Records []BatchRecord `json:"records"`
}

// BatchRecord is one entry of a batch.
type BatchRecord struct {
	// ID identifies the record in the batch response (e.g. an upstream
	// event id). Optional.
	ID string `json:"id,omitempty"`
	// Request is the document request tree for this record.
	Request *Request `json:"request"`
}

// BatchResponse summarizes a processed batch.
type BatchResponse struct {
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []RecordResult `json:"results"`
	Timestamp time.Time      `json:"timestamp"`
}

// RecordResult reports one batch record's outcome.
type RecordResult struct {
	ID string `json:"id,omitempty"`
	// Status is "ok" or "error".
	Status string `json:"status"`
	// Locations lists the generated document locations, in tree order,
	// when the record succeeded.
	Locations []string `json:"locations,omitempty"`
	// Error describes the failure when the record failed.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the structured error returned by transports when a
// request cannot be fully reconciled.
type ErrorResponse struct {
	// Stage names the pipeline stage that failed: "flatten",
	// "generate", or "reconcile".
	Stage string `json:"stage"`
	// Error is the top-level failure message.
	Error string `json:"error"`
	// Jobs details per-job failures for the generate stage.
	Jobs []JobErrorDetail `json:"jobs,omitempty"`
}

// JobErrorDetail names one failed generation job.
type JobErrorDetail struct {
	// Index is the job's position in flattening order.
	Index int `json:"index"`
	// Address is the job's template address.
	Address string `json:"address"`
	// Error is the job's failure message.
	Error string `json:"error"`
}
