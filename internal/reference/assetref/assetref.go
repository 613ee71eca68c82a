// Package assetref provides parsing of sopdrop asset references.
//
// An asset reference identifies an asset in the registry and optionally pins
// a version:
//
//	owner/name[@version]
//
// The version part may be an exact semantic version ("1.2.0", optional "v"
// prefix), a range with an explicit operator ("^1.2", ">=1.0.0 <2.0.0"), or
// the literal "latest". A missing version is equivalent to "latest".
package assetref

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	// SlugRegex validates the owner/name pair. Owner and name are lowercase
	// alphanumerics plus "-" and "_", starting with an alphanumeric.
	SlugRegex = `^[a-z0-9][a-z0-9_-]*/[a-z0-9][a-z0-9_-]*$`
	// VersionRegex validates exact semantic versions in "loose" format. It
	// allows an optional "v" prefix and supports pre-release and build
	// metadata, as per https://semver.org/spec/v2.0.0.html.
	VersionRegex = `^[v]?(0|[1-9]\d*)(?:\.(0|[1-9]\d*))?(?:\.(0|[1-9]\d*))?(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`
)

// Latest is the sentinel version resolving to the highest published
// semantic version at call time.
const Latest = "latest"

// rangeOperators are the characters that may open a version range. A bare
// word without an operator is never treated as a range, so inputs like
// "a/b@x" fail parsing instead of matching everything.
const rangeOperators = "^~><="

var (
	slugRegex    = regexp.MustCompile(SlugRegex)
	versionRegex = regexp.MustCompile(VersionRegex)
)

// ParseError describes a reference that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid asset reference %q: %s", e.Input, e.Reason)
}

// Ref is a parsed asset reference.
type Ref struct {
	// Owner is the publishing account the asset belongs to.
	Owner string
	// Name is the asset name within the owner's namespace.
	Name string
	// Version is the raw version part. Empty means latest. It is either an
	// exact version (IsExact) or a range (IsRange).
	Version string
}

// Slug returns the owner/name pair without the version part.
func (ref *Ref) Slug() string {
	return ref.Owner + "/" + ref.Name
}

// IsLatest reports whether the reference floats to the newest version.
func (ref *Ref) IsLatest() bool {
	return ref.Version == ""
}

// IsExact reports whether the reference pins one exact version.
func (ref *Ref) IsExact() bool {
	return ref.Version != "" && versionRegex.MatchString(ref.Version)
}

// IsRange reports whether the version part is a range expression.
func (ref *Ref) IsRange() bool {
	return ref.Version != "" && !versionRegex.MatchString(ref.Version)
}

func (ref *Ref) String() string {
	if ref.IsLatest() {
		return ref.Slug()
	}
	return ref.Slug() + "@" + ref.Version
}

// Parse parses an input string into a Ref.
//
// Accepted inputs:
//
//   - owner/name
//   - owner/name@latest
//   - owner/name@1.2.0 (or v1.2.0, 1.2.0-beta.1, ...)
//   - owner/name@^1.2 and other operator-prefixed semver ranges
func Parse(input string) (*Ref, error) {
	slug := input

	// Split off the optional version part first.
	var version string
	if idx := strings.LastIndex(input, "@"); idx != -1 {
		slug = input[:idx]
		version = input[idx+1:]
		if version == "" {
			return nil, &ParseError{Input: input, Reason: "empty version after @"}
		}
	}

	if !slugRegex.MatchString(slug) {
		return nil, &ParseError{Input: input, Reason: fmt.Sprintf("slug must match %q", SlugRegex)}
	}
	owner, name, _ := strings.Cut(slug, "/")

	ref := &Ref{Owner: owner, Name: name}

	switch {
	case version == "" || version == Latest:
		// floats to the newest version at resolution time
	case versionRegex.MatchString(version):
		ref.Version = version
	case strings.ContainsAny(version[:1], rangeOperators):
		if _, err := semver.NewConstraint(version); err != nil {
			return nil, &ParseError{Input: input, Reason: fmt.Sprintf("invalid version range %q: %s", version, err)}
		}
		ref.Version = version
	default:
		return nil, &ParseError{Input: input, Reason: fmt.Sprintf("version %q is neither an exact semantic version, a range, nor %q", version, Latest)}
	}

	return ref, nil
}
