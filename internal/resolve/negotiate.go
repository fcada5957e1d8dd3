package resolve

import "strings"

// Representation is the form of a package version answer.
type Representation int

const (
	Metadata Representation = iota // JSON metadata
	Readme                         // stored readme
	Archive                        // stored package archive
)

// Media types selecting a stored blob.
const (
	MediaReadme  = "text/plain"
	MediaArchive = "application/octet-stream"
)

// Negotiate maps an Accept header to a representation. Only an exact,
// case-insensitive match of a single media type selects a blob; anything
// else, absent included, is metadata.
func Negotiate(accept string) Representation {
	switch strings.ToLower(strings.TrimSpace(accept)) {
	case MediaReadme:
		return Readme
	case MediaArchive:
		return Archive
	}
	return Metadata
}

func (r Representation) String() string {
	switch r {
	case Readme:
		return "readme"
	case Archive:
		return "archive"
	}
	return "metadata"
}
