package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"sigs.k8s.io/yaml"

	"sopdrop.com/cli/internal/registry"
)

func encodeAssets(output string, assets []registry.Asset) (io.Reader, int64, error) {
	var data []byte
	var err error
	switch output {
	case "json":
		data, err = json.MarshalIndent(assets, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(assets)
	case "table":
		data, err = encodeAssetsAsTable(assets)
	default:
		err = fmt.Errorf("unknown output format: %q", output)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("encoding search results as %q failed: %w", output, err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func encodeAssetsAsTable(assets []registry.Asset) ([]byte, error) {
	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.AppendHeader(table.Row{"Asset", "Context", "Kind", "Latest", "Downloads", "Description"})
	for _, asset := range assets {
		t.AppendRow(table.Row{
			asset.Slug,
			strings.ToUpper(asset.Context),
			asset.Kind,
			asset.LatestVersion,
			asset.Downloads,
			truncate(asset.Description, 60),
		})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
