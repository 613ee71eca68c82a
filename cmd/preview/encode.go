package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"

	"sopdrop.com/cli/internal/pack"
	"sopdrop.com/cli/internal/security"
	"sopdrop.com/cli/sopdrop"
)

// view is the serializable shape of a preview, the raw package payload
// stays out of it.
type view struct {
	Slug      string             `json:"slug"`
	Version   string             `json:"version"`
	Kind      pack.Kind          `json:"kind"`
	Context   string             `json:"context,omitempty"`
	Size      int                `json:"size"`
	NodeCount int                `json:"node_count,omitempty"`
	NodeTypes []string           `json:"node_types,omitempty"`
	Warnings  []security.Warning `json:"warnings,omitempty"`
}

func newView(result *sopdrop.PreviewResult) view {
	v := view{
		Slug:     result.Asset.Slug,
		Version:  result.Version,
		Kind:     result.Kind,
		Context:  result.Asset.Context,
		Size:     result.Size,
		Warnings: result.Warnings,
	}
	if result.Package != nil {
		v.Context = result.Package.Context
		v.NodeCount = result.Package.Metadata.NodeCount
		v.NodeTypes = result.Package.Metadata.NodeTypes
	}
	return v
}

func encodePreview(output string, result *sopdrop.PreviewResult) (io.Reader, int64, error) {
	v := newView(result)
	var data []byte
	var err error
	switch output {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(v)
	case "table":
		data, err = encodePreviewAsText(v)
	default:
		err = fmt.Errorf("unknown output format: %q", output)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("encoding preview as %q failed: %w", output, err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func encodePreviewAsText(v view) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s@%s\n", v.Slug, v.Version)
	fmt.Fprintf(&buf, "Kind:       %s\n", v.Kind)
	if v.Context != "" {
		fmt.Fprintf(&buf, "Context:    %s\n", strings.ToUpper(v.Context))
	}
	fmt.Fprintf(&buf, "Size:       %d bytes\n", v.Size)
	if v.NodeCount > 0 {
		fmt.Fprintf(&buf, "Nodes:      %d\n", v.NodeCount)
	}
	if len(v.NodeTypes) > 0 {
		fmt.Fprintf(&buf, "Node types: %s\n", strings.Join(v.NodeTypes, ", "))
	}
	if len(v.Warnings) == 0 {
		fmt.Fprintln(&buf, "\nNo warnings.")
		return buf.Bytes(), nil
	}
	fmt.Fprintln(&buf, "\nWarnings:")
	for _, w := range v.Warnings {
		fmt.Fprintf(&buf, "  - %s\n", w.Message)
	}
	return buf.Bytes(), nil
}
