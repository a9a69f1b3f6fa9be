// Package paginate drains paginated Qualys listings into a single ordered
// collection. The registry only records whether an endpoint paginates; the
// concrete strategy is discovered from each response:
//
//   - id-range cursor: XML listings embed a WARNING/URL whose id_min query
//     parameter names the next page
//   - opaque link cursor: JSON listings carry a Link response header with a
//     paginationQuery parameter to echo back
//   - page number / searchAfter: integer pageNumber advances by one, a
//     searchAfter response header is copied onto the next request, and the
//     GAV envelope's lastId feeds the lastSeenAssetId parameter
//
// The shard worker pool in shard.go parallelizes id-range endpoints over
// non-overlapping ID chunks.
package paginate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/mholtzmann/qualys-api-client/pkg/client"
	"github.com/mholtzmann/qualys-api-client/pkg/logging"
	"github.com/mholtzmann/qualys-api-client/pkg/record"
	"github.com/mholtzmann/qualys-api-client/pkg/registry"
)

// Prometheus metrics for pagination.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualys_pages_fetched_total",
		Help: "Total pages fetched by endpoint",
	}, []string{"endpoint"})

	listingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualys_listings_total",
		Help: "Completed listings by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
)

// Engine drains listings through a dispatcher.
type Engine struct {
	client *client.Client
	logger zerolog.Logger
}

// New creates a pagination engine on top of a dispatcher.
func New(c *client.Client) *Engine {
	return &Engine{
		client: c,
		logger: logging.NewLogger("paginate"),
	}
}

// Options controls one logical listing.
type Options struct {
	// Call carries the per-call parameters for the first page.
	Call client.CallOptions

	// PageCount caps the number of pages fetched. Zero means all.
	PageCount int

	// PageSize is the per-page record cap, forwarded as truncation_limit
	// (XML) or pageSize (JSON) and clamped to the descriptor's ceiling.
	PageSize int

	// KeyFields name the record identity fields. Empty probes well-known
	// identifier names.
	KeyFields []string
}

// FetchAll consumes an entire listing and returns the merged collection.
// When a page fails after earlier pages succeeded, the partial collection is
// returned inside a PartialListing error.
func (e *Engine) FetchAll(ctx context.Context, module, endpoint string, opts Options) (*record.List, error) {
	desc, ok := registry.Lookup(module, endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", client.ErrUnknownEndpoint, module, endpoint)
	}
	if !desc.Paginated {
		return e.fetchSingle(ctx, module, endpoint, opts)
	}

	call := cloneCall(opts.Call)
	call.FailOnError = true
	pageSize := applyPageSize(desc, &call, opts.PageSize)

	out := record.NewList()
	label := module + "." + endpoint
	page := 0

	for {
		page++
		resp, err := e.client.Call(ctx, module, endpoint, call)
		if err != nil {
			if out.Len() > 0 {
				e.logger.Warn().
					Str("endpoint", label).
					Int("page", page).
					Int("records", out.Len()).
					Err(err).
					Msg("Listing failed mid-iteration, returning partial result")
				listingsTotal.WithLabelValues(label, "partial").Inc()
				return out, &PartialListing{Partial: out, Errs: []error{err}}
			}
			listingsTotal.WithLabelValues(label, "error").Inc()
			return nil, err
		}
		pagesFetchedTotal.WithLabelValues(label).Inc()

		decoded, err := resp.Decode()
		if err != nil {
			listingsTotal.WithLabelValues(label, "error").Inc()
			if out.Len() > 0 {
				return out, &PartialListing{Partial: out, Errs: []error{err}}
			}
			return nil, err
		}

		items := extractItems(decoded)
		added := 0
		for _, fields := range items {
			if out.Append(record.NewItem(fields, opts.KeyFields...)) {
				added++
			}
		}

		e.logger.Debug().
			Str("endpoint", label).
			Int("page", page).
			Int("records", added).
			Msg("Page consumed")

		cont := nextCursor(decoded, resp.Headers, call, pageSize, len(items))
		if cont == nil || len(items) == 0 {
			break
		}
		if opts.PageCount > 0 && page >= opts.PageCount {
			break
		}
		cont(&call)
	}

	listingsTotal.WithLabelValues(label, "ok").Inc()
	e.logger.Info().
		Str("endpoint", label).
		Int("pages", page).
		Int("records", out.Len()).
		Msg("Listing complete")
	return out, nil
}

// fetchSingle handles non-paginated endpoints through the same decode and
// extraction path, so callers get a List either way.
func (e *Engine) fetchSingle(ctx context.Context, module, endpoint string, opts Options) (*record.List, error) {
	call := cloneCall(opts.Call)
	call.FailOnError = true

	resp, err := e.client.Call(ctx, module, endpoint, call)
	if err != nil {
		return nil, err
	}
	decoded, err := resp.Decode()
	if err != nil {
		return nil, err
	}

	out := record.NewList()
	for _, fields := range extractItems(decoded) {
		out.Append(record.NewItem(fields, opts.KeyFields...))
	}
	return out, nil
}

// cursorFn mutates the call options for the next page.
type cursorFn func(*client.CallOptions)

// nextCursor inspects a decoded page and its headers for a continuation.
// Nil means the listing is complete.
func nextCursor(decoded any, headers http.Header, call client.CallOptions, pageSize, got int) cursorFn {
	// Strategy A: XML warning element with a next-page URL.
	if m, ok := decoded.(map[string]any); ok {
		if next := warningIDMin(m); next != "" {
			return func(c *client.CallOptions) {
				c.Params = cloneParams(c.Params)
				c.Params["id_min"] = next
			}
		}
	}

	// Strategy B: opaque cursor in the Link header.
	if link := headers.Get("Link"); link != "" {
		if q := linkParam(link, "paginationQuery"); q != "" {
			return func(c *client.CallOptions) {
				c.Params = cloneParams(c.Params)
				c.Params["paginationQuery"] = q
			}
		}
	}

	// Strategy C: searchAfter response header copied verbatim.
	if sa := headers.Get("searchAfter"); sa != "" {
		return func(c *client.CallOptions) {
			if c.Headers == nil {
				c.Headers = http.Header{}
			} else {
				c.Headers = c.Headers.Clone()
			}
			c.Headers.Set("searchAfter", sa)
		}
	}

	// Strategy C: JSON envelope with an explicit more-records marker.
	if m, ok := decoded.(map[string]any); ok {
		if hasMore(m) {
			if lastID := stringField(m, "lastId", "lastSeenAssetId", "lastSeenId"); lastID != "" {
				return func(c *client.CallOptions) {
					c.Params = cloneParams(c.Params)
					c.Params["lastSeenAssetId"] = lastID
				}
			}
		}
	}

	// Strategy C: integer page number. Advance only while pages come back
	// full; a short page is the end marker.
	if cur, ok := call.Params["pageNumber"]; ok {
		if pageSize > 0 && got < pageSize {
			return nil
		}
		if got == 0 {
			return nil
		}
		n, err := strconv.Atoi(cur)
		if err != nil {
			return nil
		}
		return func(c *client.CallOptions) {
			c.Params = cloneParams(c.Params)
			c.Params["pageNumber"] = strconv.Itoa(n + 1)
		}
	}

	return nil
}

// warningIDMin extracts the id_min parameter from the WARNING/URL element of
// an XML listing, wherever the OUTPUT envelope nests it.
func warningIDMin(m map[string]any) string {
	for _, rootVal := range m {
		root, ok := rootVal.(map[string]any)
		if !ok {
			continue
		}
		resp, ok := root["RESPONSE"].(map[string]any)
		if !ok {
			continue
		}
		warning, ok := resp["WARNING"].(map[string]any)
		if !ok {
			return ""
		}
		rawURL, _ := warning["URL"].(string)
		if rawURL == "" {
			return ""
		}
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		return parsed.Query().Get("id_min")
	}
	return ""
}

// linkParam extracts a query parameter from an RFC 5988 Link header value.
func linkParam(link, name string) string {
	start := strings.Index(link, "<")
	end := strings.Index(link, ">")
	if start < 0 || end < start {
		return ""
	}
	parsed, err := url.Parse(link[start+1 : end])
	if err != nil {
		return ""
	}
	return parsed.Query().Get(name)
}

func hasMore(m map[string]any) bool {
	switch v := m["hasMoreRecords"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

func stringField(m map[string]any, names ...string) string {
	for _, n := range names {
		if v, ok := m[n]; ok && v != nil {
			return record.Stringify(v)
		}
	}
	return ""
}

// extractItems pulls the record mappings out of a decoded page, whichever
// envelope the endpoint used.
func extractItems(decoded any) []map[string]any {
	switch v := decoded.(type) {
	case []any:
		return mapsOf(v)
	case map[string]any:
		// JSON envelope: data array first.
		if data, ok := v["data"].([]any); ok {
			return mapsOf(data)
		}
		// XML envelope: OUTPUT/RESPONSE containing a record list.
		for _, rootVal := range v {
			root, ok := rootVal.(map[string]any)
			if !ok {
				continue
			}
			if resp, ok := root["RESPONSE"].(map[string]any); ok {
				return findRecordList(resp)
			}
		}
		// Flat JSON object with a single embedded array.
		return findRecordList(v)
	default:
		return nil
	}
}

// findRecordList walks a folded envelope depth-first for the first slice of
// mappings, skipping listing metadata.
var metadataKeys = map[string]bool{
	"WARNING": true, "DATETIME": true, "count": true, "responseCode": true,
	"hasMoreRecords": true, "lastId": true, "lastSeenAssetId": true,
}

func findRecordList(node map[string]any) []map[string]any {
	keys := make([]string, 0, len(node))
	for k := range node {
		if !metadataKeys[k] {
			keys = append(keys, k)
		}
	}
	// Deterministic walk order.
	sort.Strings(keys)

	for _, k := range keys {
		switch child := node[k].(type) {
		case []any:
			if items := mapsOf(child); len(items) > 0 {
				return items
			}
		case map[string]any:
			if items := findRecordList(child); len(items) > 0 {
				return items
			}
			// A single-record page folds to one mapping under the item tag.
			if len(node) == 1 && looksLikeRecord(child) {
				return []map[string]any{child}
			}
		}
	}
	return nil
}

func looksLikeRecord(m map[string]any) bool {
	for _, v := range m {
		switch v.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return len(m) > 0
}

func mapsOf(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// applyPageSize forwards the per-page cap under the parameter name the
// endpoint understands and returns
// the effective size after clamping to the descriptor ceiling. Short-page
// detection must compare against this value, not the caller's request.
func applyPageSize(desc *registry.Descriptor, call *client.CallOptions, size int) int {
	if size <= 0 {
		return 0
	}
	if size > desc.Ceiling() {
		size = desc.Ceiling()
	}
	call.Params = cloneParams(call.Params)
	if desc.AllowsQueryParam("truncation_limit") {
		call.Params["truncation_limit"] = strconv.Itoa(size)
		return size
	}
	if desc.AllowsQueryParam("pageSize") {
		call.Params["pageSize"] = strconv.Itoa(size)
	}
	return size
}

func cloneCall(c client.CallOptions) client.CallOptions {
	c.Params = cloneParams(c.Params)
	if c.Headers != nil {
		c.Headers = c.Headers.Clone()
	}
	if c.Body != nil {
		body := make(map[string]any, len(c.Body))
		for k, v := range c.Body {
			body[k] = v
		}
		c.Body = body
	}
	return c
}

func cloneParams(p map[string]string) map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
