// Package pack implements the sopdrop package format.
//
// Node assets travel as JSON documents carrying a base64 payload of
// serialized nodes plus a sha256 checksum over the decoded payload. HDA
// assets travel as opaque binary files and are checked against the
// checksum the registry reports for the version.
package pack

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Known package format identifiers.
const (
	FormatV1 = "sopdrop-v1"
	FormatV2 = "sopdrop-v2"
)

// Kind distinguishes the two artifact flavors.
type Kind string

const (
	KindNode Kind = "node"
	KindHDA  Kind = "hda"
)

// Ext returns the cache file extension for the kind.
func (k Kind) Ext() string {
	if k == KindHDA {
		return ".hda"
	}
	return ".sopdrop"
}

// Metadata describes the content of a node package. It is produced by the
// exporter and feeds the security gate's warnings.
type Metadata struct {
	NodeCount          int      `json:"node_count"`
	NodeNames          []string `json:"node_names,omitempty"`
	NodeTypes          []string `json:"node_types,omitempty"`
	HasPythonSOPs      bool     `json:"has_python_sops"`
	HasHDADependencies bool     `json:"has_hda_dependencies"`
	HasExpressions     bool     `json:"has_expressions"`
	NetworkBoxes       int      `json:"network_boxes"`
	StickyNotes        int      `json:"sticky_notes"`
}

// Dependency names an external HDA the package relies on.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Package is a decoded .sopdrop document.
type Package struct {
	Format         string       `json:"format"`
	Context        string       `json:"context"`
	HoudiniVersion string       `json:"houdini_version,omitempty"`
	Metadata       Metadata     `json:"metadata"`
	Dependencies   []Dependency `json:"dependencies,omitempty"`
	Data           string       `json:"data"`
	Checksum       string       `json:"checksum"`
	// Code carries the generated creation script in sopdrop-v1 packages.
	Code string `json:"code,omitempty"`
}

// ChecksumError reports a payload that does not hash to its declared
// checksum.
type ChecksumError struct {
	Want string
	Got  string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("payload checksum mismatch: want %s, got %s", e.Want, e.Got)
}

// Decode parses a node package document and validates its format field.
func Decode(data []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing package document failed: %w", err)
	}
	switch pkg.Format {
	case FormatV1, FormatV2:
	case "":
		return nil, fmt.Errorf("package document has no format field")
	default:
		return nil, fmt.Errorf("unsupported package format %q", pkg.Format)
	}
	return &pkg, nil
}

// Payload returns the base64-decoded node payload.
func (p *Package) Payload() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding package payload failed: %w", err)
	}
	return data, nil
}

// Verify checks the declared checksum against the decoded payload.
func (p *Package) Verify() error {
	payload, err := p.Payload()
	if err != nil {
		return err
	}
	if got := Sum(payload); got != p.Checksum {
		return &ChecksumError{Want: p.Checksum, Got: got}
	}
	return nil
}

// Sniff classifies raw payload bytes. Anything that parses as a package
// document with a format field is a node package; everything else is
// treated as HDA binary.
func Sniff(data []byte) Kind {
	var probe struct {
		Format string `json:"format"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Format != "" {
		return KindNode
	}
	return KindHDA
}

// VerifyHDA checks HDA bytes against a registry-reported checksum. An empty
// checksum means the registry did not report one, which passes.
func VerifyHDA(data []byte, checksum string) error {
	if checksum == "" {
		return nil
	}
	if got := Sum(data); got != checksum {
		return &ChecksumError{Want: checksum, Got: got}
	}
	return nil
}

// Sum returns the hex sha256 of data, the hash the format uses throughout.
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
