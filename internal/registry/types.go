package registry

import (
	"encoding/json"
	"strings"
	"time"
)

// Asset kinds as reported by the registry.
const (
	KindNode = "node" // serialized node network (.sopdrop package)
	KindHDA  = "hda"  // Houdini Digital Asset binary
)

// Publisher identifies the account that published an asset.
type Publisher struct {
	Username      string `json:"username"`
	EmailVerified bool   `json:"email_verified"`
}

// Asset is a registry asset document.
type Asset struct {
	Slug          string    `json:"slug"`
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	Context       string    `json:"context"`
	Kind          string    `json:"kind"`
	Description   string    `json:"description,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Downloads     int       `json:"downloads"`
	LatestVersion string    `json:"latest_version,omitempty"`
	Publisher     Publisher `json:"publisher"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// Version is one published, immutable version of an asset.
type Version struct {
	Version        string    `json:"version"`
	Size           int64     `json:"size"`
	Checksum       string    `json:"checksum,omitempty"`
	Changelog      string    `json:"changelog,omitempty"`
	HoudiniVersion string    `json:"houdini_version,omitempty"`
	PublishedAt    time.Time `json:"published_at,omitzero"`
}

// User is the authenticated account behind the current token.
type User struct {
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// SearchOptions narrow a search query. Zero values mean no restriction.
type SearchOptions struct {
	Context string
	Tags    []string
	Limit   int
}

// PublishRequest is the metadata envelope for publishing an asset. For node
// assets Package carries the .sopdrop document; HDA uploads send the file as
// a separate multipart part instead.
type PublishRequest struct {
	Name        string          `json:"name"`
	Context     string          `json:"context"`
	Version     string          `json:"version"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Changelog   string          `json:"changelog,omitempty"`
	Package     json.RawMessage `json:"package,omitempty"`
}

// Payload is a downloaded artifact before decoding. The content type
// distinguishes node packages (JSON) from raw HDA bytes.
type Payload struct {
	Data        []byte
	ContentType string
}

// IsJSON reports whether the payload is a node package document.
func (p *Payload) IsJSON() bool {
	return strings.HasPrefix(p.ContentType, "application/json")
}
