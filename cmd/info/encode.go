package info

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"sigs.k8s.io/yaml"

	"sopdrop.com/cli/sopdrop"
)

func encodeInfo(output string, details *sopdrop.AssetInfo) (io.Reader, int64, error) {
	var data []byte
	var err error
	switch output {
	case "json":
		data, err = json.MarshalIndent(details, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(details)
	case "table":
		data, err = encodeInfoAsText(details)
	default:
		err = fmt.Errorf("unknown output format: %q", output)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("encoding asset details as %q failed: %w", output, err)
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func encodeInfoAsText(details *sopdrop.AssetInfo) ([]byte, error) {
	var buf bytes.Buffer
	asset := details.Asset

	fmt.Fprintf(&buf, "%s\n", asset.Slug)
	fmt.Fprintf(&buf, "Owner:      @%s\n", asset.Owner)
	fmt.Fprintf(&buf, "Context:    %s\n", strings.ToUpper(asset.Context))
	fmt.Fprintf(&buf, "Kind:       %s\n", asset.Kind)
	fmt.Fprintf(&buf, "Latest:     %s\n", asset.LatestVersion)
	fmt.Fprintf(&buf, "Downloads:  %d\n", asset.Downloads)
	if !asset.Publisher.EmailVerified {
		fmt.Fprintf(&buf, "Publisher:  %s (email not verified)\n", asset.Publisher.Username)
	}
	if len(asset.Tags) > 0 {
		fmt.Fprintf(&buf, "Tags:       %s\n", strings.Join(asset.Tags, ", "))
	}
	if asset.Description != "" {
		fmt.Fprintf(&buf, "\n%s\n", asset.Description)
	}

	if len(details.Versions) > 0 {
		fmt.Fprintln(&buf)
		t := table.NewWriter()
		t.SetOutputMirror(&buf)
		t.AppendHeader(table.Row{"Version", "Published", "Size", "Changelog"})
		for _, v := range details.Versions {
			published := ""
			if !v.PublishedAt.IsZero() {
				published = v.PublishedAt.Format("2006-01-02")
			}
			t.AppendRow(table.Row{v.Version, published, v.Size, truncate(v.Changelog, 40)})
		}
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
	}

	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
