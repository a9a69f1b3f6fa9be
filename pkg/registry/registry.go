// Package registry holds the frozen endpoint call schema: one Descriptor per
// Qualys endpoint, keyed by (module, endpoint). The registry is assembled once
// at package init from the per-module tables and never mutated afterwards;
// the dispatcher consults it for URL composition, parameter validation, body
// encoding, and auth mode.
package registry

import (
	"fmt"
	"sort"
)

// URLKind selects which base URL template an endpoint is served from.
type URLKind string

const (
	// URLAPI routes to the classic API host (qualysapi.<platform>...).
	URLAPI URLKind = "api"

	// URLGateway routes to the gateway host (gateway.<platform>...).
	URLGateway URLKind = "gateway"
)

// BodyEncoding describes how body parameters are rendered on the wire.
type BodyEncoding string

const (
	BodyNone        BodyEncoding = "none"
	BodyForm        BodyEncoding = "form-urlencoded"
	BodyJSON        BodyEncoding = "json"
	BodyXMLEmbedded BodyEncoding = "xml-embedded"
)

// ResponseEncoding describes the wire format of an endpoint's responses.
type ResponseEncoding string

const (
	ResponseXML    ResponseEncoding = "xml"
	ResponseJSON   ResponseEncoding = "json"
	ResponseBinary ResponseEncoding = "binary"
)

// AuthMode selects how credentials are attached to a request.
type AuthMode string

const (
	AuthBasic AuthMode = "basic"
	AuthToken AuthMode = "token"
)

// XMLBodyParam is the distinguished parameter name carrying a pre-formed XML
// document for endpoints with BodyXMLEmbedded encoding.
const XMLBodyParam = "xml_data"

// PlaceholderParam is the reserved parameter name consumed to fill the
// {placeholder} segment of a path template. It is never transmitted.
const PlaceholderParam = "placeholder"

// Descriptor is the immutable call schema for a single endpoint.
type Descriptor struct {
	// Module is the logical product area (vmdr, gav, pm, cs, cert, was, tag, admin).
	Module string

	// Endpoint is the stable identifier callers use.
	Endpoint string

	// URLKind selects the base URL (api or gateway host).
	URLKind URLKind

	// Path is the URL path, possibly containing one {placeholder} segment.
	Path string

	// Methods are the permitted HTTP methods.
	Methods []string

	// QueryParams is the finite set of names permitted in the query string.
	QueryParams []string

	// BodyParams is the finite set of names permitted in the request body.
	BodyParams []string

	// BodyEncoding selects how body parameters are rendered.
	BodyEncoding BodyEncoding

	// ResponseEncoding is the expected wire format of responses.
	ResponseEncoding ResponseEncoding

	// Paginated reports whether the endpoint supports iteration. The concrete
	// strategy is discovered at runtime from the response shape.
	Paginated bool

	// AuthMode selects basic or bearer-token authentication.
	AuthMode AuthMode

	// TruncationCeiling is the hard per-page record cap. Zero means the
	// platform default of 10,000.
	TruncationCeiling int
}

// AllowsMethod reports whether m is a permitted HTTP method.
func (d *Descriptor) AllowsMethod(m string) bool {
	for _, allowed := range d.Methods {
		if allowed == m {
			return true
		}
	}
	return false
}

// AllowsQueryParam reports whether name may appear in the query string.
func (d *Descriptor) AllowsQueryParam(name string) bool {
	for _, p := range d.QueryParams {
		if p == name {
			return true
		}
	}
	return false
}

// AllowsBodyParam reports whether name may appear in the request body.
func (d *Descriptor) AllowsBodyParam(name string) bool {
	for _, p := range d.BodyParams {
		if p == name {
			return true
		}
	}
	return false
}

// Ceiling returns the effective per-page record cap.
func (d *Descriptor) Ceiling() int {
	if d.TruncationCeiling > 0 {
		return d.TruncationCeiling
	}
	return 10000
}

// View returns a read-only copy of the descriptor as a map, optionally
// restricted to the named fields. Interactive documentation tools use this
// to render endpoint schemas without exposing the registry internals.
func (d *Descriptor) View(fields ...string) map[string]any {
	full := map[string]any{
		"module":            d.Module,
		"endpoint":          d.Endpoint,
		"url_kind":          string(d.URLKind),
		"path":              d.Path,
		"methods":           append([]string(nil), d.Methods...),
		"query_params":      append([]string(nil), d.QueryParams...),
		"body_params":       append([]string(nil), d.BodyParams...),
		"body_encoding":     string(d.BodyEncoding),
		"response_encoding": string(d.ResponseEncoding),
		"paginated":         d.Paginated,
		"auth_mode":         string(d.AuthMode),
	}
	if len(fields) == 0 {
		return full
	}
	view := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			view[f] = v
		}
	}
	return view
}

type key struct {
	module   string
	endpoint string
}

var table map[key]*Descriptor

func init() {
	table = make(map[key]*Descriptor)
	for _, group := range [][]Descriptor{
		vmdrEndpoints,
		gavEndpoints,
		pmEndpoints,
		csEndpoints,
		certEndpoints,
		wasEndpoints,
		tagEndpoints,
		adminEndpoints,
	} {
		for i := range group {
			d := &group[i]
			k := key{d.Module, d.Endpoint}
			if _, dup := table[k]; dup {
				panic(fmt.Sprintf("registry: duplicate endpoint %s.%s", d.Module, d.Endpoint))
			}
			table[k] = d
		}
	}
}

// Lookup returns the descriptor for (module, endpoint), or false if the pair
// is not registered. The returned descriptor must not be modified.
func Lookup(module, endpoint string) (*Descriptor, bool) {
	d, ok := table[key{module, endpoint}]
	return d, ok
}

// Modules returns the sorted list of registered module names.
func Modules() []string {
	seen := make(map[string]bool)
	for k := range table {
		seen[k.module] = true
	}
	names := make([]string, 0, len(seen))
	for m := range seen {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Endpoints returns the sorted endpoint names registered under module.
func Endpoints(module string) []string {
	var names []string
	for k := range table {
		if k.module == module {
			names = append(names, k.endpoint)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered endpoints.
func Len() int {
	return len(table)
}
