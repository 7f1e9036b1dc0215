package tools

import "encoding/json"

// ContentItem is one element of a ToolResult's content sequence: text,
// an inline image, or a reference to an out-of-band resource. Exactly
// one of the type-specific fields is populated, selected by Type.
type ContentItem struct {
	Type string `json:"type"`

	// Text holds the payload when Type == "text".
	Text string `json:"text,omitempty"`

	// Data holds base64-encoded bytes when Type == "image".
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// Resource holds a reference when Type == "resource".
	Resource *ResourceReference `json:"resource,omitempty"`
}

// ResourceReference points at a resource the client can separately
// fetch, rather than inlining its bytes into the result.
type ResourceReference struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// TextContent builds a single text content item.
func TextContent(text string) ContentItem {
	return ContentItem{Type: "text", Text: text}
}

// ImageContent builds a single image content item from base64-encoded
// image bytes.
func ImageContent(base64Data, mimeType string) ContentItem {
	return ContentItem{Type: "image", Data: base64Data, MimeType: mimeType}
}

// ResourceContent builds a content item referencing an external
// resource rather than inlining it.
func ResourceContent(ref ResourceReference) ContentItem {
	return ContentItem{Type: "resource", Resource: &ref}
}

// ToolResult is the outcome of one tools/call invocation: an ordered
// sequence of content items, plus a flag marking execution-level
// failure (IsError) that is distinct from a transport-level JSON-RPC
// error — an IsError result still carries a 200-equivalent response,
// it just tells the model the tool itself failed.
type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// TextResult wraps a single text content item as a successful result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentItem{TextContent(text)}}
}

// ErrorResult wraps a single text content item as a failed result —
// the failure is reported to the model as tool output, not raised as a
// JSON-RPC protocol error.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentItem{TextContent(text)}, IsError: true}
}

// JSONResult marshals v and wraps it as a single text content item,
// falling back to an error result if v cannot be marshaled.
func JSONResult(v any) *ToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResult("failed to serialize tool output: " + err.Error())
	}
	return &ToolResult{Content: []ContentItem{TextContent(string(data))}}
}
