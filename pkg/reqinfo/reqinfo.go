// Package reqinfo extracts diagnostic metadata from inbound HTTP requests.
//
// The extracted Info is attached to rejection errors and telemetry events.
// Extraction is pure: it performs no network or cache access and never fails.
package reqinfo

import (
	"net/http"
	"strings"
)

// Mask replaces redacted header values.
const Mask = "***"

// DefaultSensitiveHeaders are always masked by Redacted.
var DefaultSensitiveHeaders = []string{
	"x-gapo-api-key",
	"authorization",
	"cookie",
	"proxy-authorization",
}

// Info is the diagnostic context of a single request.
type Info struct {
	Headers map[string]string `json:"headers"`
	URI     string            `json:"uri"`
	Tags    map[string]string `json:"tags"`
	Body    map[string]string `json:"body"`

	// Sensitive lists extra header names that Redacted masks, such as a
	// renamed API key header.
	Sensitive []string `json:"-"`
}

// FromRequest builds an Info from r. Header names are lower-cased and only
// the first value of a repeated header is kept. A nil request yields an
// empty Info with non-nil maps.
func FromRequest(r *http.Request) Info {
	info := Info{
		Headers: make(map[string]string),
		Tags:    make(map[string]string),
		Body:    make(map[string]string),
	}
	if r == nil {
		return info
	}

	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		info.Headers[strings.ToLower(name)] = values[0]
	}

	info.URI = URI(r)
	return info
}

// URI returns "path?query" for r, or just the path when there is no query.
func URI(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

// WithSensitive returns a copy of i that also masks names when redacted.
func (i Info) WithSensitive(names ...string) Info {
	out := i
	out.Sensitive = append(append([]string(nil), i.Sensitive...), names...)
	return out
}

// Redacted returns a copy of i with credential headers masked: the
// DefaultSensitiveHeaders, the headers in i.Sensitive, and names.
func (i Info) Redacted(names ...string) Info {
	out := Info{
		Headers:   make(map[string]string, len(i.Headers)),
		URI:       i.URI,
		Tags:      copyMap(i.Tags),
		Body:      copyMap(i.Body),
		Sensitive: append([]string(nil), i.Sensitive...),
	}
	for k, v := range i.Headers {
		out.Headers[k] = v
	}
	for _, group := range [][]string{DefaultSensitiveHeaders, i.Sensitive, names} {
		for _, name := range group {
			key := strings.ToLower(name)
			if _, ok := out.Headers[key]; ok {
				out.Headers[key] = Mask
			}
		}
	}
	return out
}

// TagSet flattens the headers and URI into one tag map, the shape telemetry
// backends expect.
func (i Info) TagSet() map[string]string {
	tags := make(map[string]string, len(i.Headers)+len(i.Tags)+1)
	for k, v := range i.Headers {
		tags[k] = v
	}
	for k, v := range i.Tags {
		tags[k] = v
	}
	tags["uri"] = i.URI
	return tags
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
