package publication

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// idSeparator joins the platform id and the encoded file path.
	idSeparator = "::"

	// EpochSentinel marks a record that was never submitted.
	EpochSentinel = "0000-00-00T00:00:00.000Z"

	// TimeLayout is the ISO-8601 UTC layout of lastLocalSubmittedAt.
	TimeLayout = "2006-01-02T15:04:05.000Z"
)

// Record is the local tracking row for one (file, platform) pair.
type Record struct {
	ID                   string `json:"id"`
	FilePath             string `json:"filePath"`
	PlatformID           string `json:"platformId"`
	PlatformName         string `json:"platformName"`
	LastLocalSubmittedAt string `json:"lastLocalSubmittedAt"`
	MetadataJSON         string `json:"metadataJson"`
}

// Metadata parses the record's metadata blob.
func (r *Record) Metadata() Metadata { return ParseMetadata(r.MetadataJSON) }

// RemoteURL returns the configured remote URL, or "".
func (r *Record) RemoteURL() string { return r.Metadata().RemoteURL() }

// Submitted reports whether the record was ever touched.
func (r *Record) Submitted() bool { return r.LastLocalSubmittedAt != EpochSentinel }

// SubmittedAt parses LastLocalSubmittedAt. The sentinel yields the zero time.
func (r *Record) SubmittedAt() time.Time {
	t, err := time.Parse(TimeLayout, r.LastLocalSubmittedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ID derives the record id of a (platform, file) pair.
func ID(platformID, filePath string) string {
	return platformID + idSeparator + encodeURIComponent(filePath)
}

// ParseID splits a record id into its platform id and file path.
func ParseID(id string) (platformID, filePath string, err error) {
	platformID, encoded, ok := strings.Cut(id, idSeparator)
	if !ok || platformID == "" {
		return "", "", fmt.Errorf("malformed publication id %q", id)
	}
	filePath, err = url.PathUnescape(encoded)
	if err != nil {
		return "", "", fmt.Errorf("malformed publication id %q: %w", id, err)
	}
	return platformID, filePath, nil
}

// encodeURIComponent percent-encodes s like the ECMAScript function of the
// same name, so ids match databases written by earlier releases.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreservedURIComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreservedURIComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// Metadata is the schemaless metadata object of a record.
// Unknown keys are carried through every update.
type Metadata map[string]any

// metadataRemoteURL is the key holding the remote URL.
const metadataRemoteURL = "remoteUrl"

// ParseMetadata parses a metadata blob. Anything other than a JSON
// object yields empty metadata.
func ParseMetadata(s string) Metadata {
	m := Metadata{}
	if strings.TrimSpace(s) == "" {
		return m
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return Metadata{}
	}
	return m
}

// RemoteURL returns the remoteUrl value, or "" when absent or not a string.
func (m Metadata) RemoteURL() string {
	s, _ := m[metadataRemoteURL].(string)
	return s
}

// WithRemoteURL returns a copy with remoteUrl set.
func (m Metadata) WithRemoteURL(u string) Metadata {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[metadataRemoteURL] = u
	return out
}

// String encodes the metadata as a JSON object.
func (m Metadata) String() string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return "{}"
	}
	return string(data)
}

// formatTime formats t in TimeLayout.
func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// nextSubmission returns a timestamp for now that is strictly after prev.
func nextSubmission(prev string, now time.Time) string {
	now = now.UTC().Truncate(time.Millisecond)
	if last, err := time.Parse(TimeLayout, prev); err == nil && !now.After(last) {
		now = last.Add(time.Millisecond)
	}
	return formatTime(now)
}
