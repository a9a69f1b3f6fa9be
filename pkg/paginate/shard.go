package paginate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mholtzmann/qualys-api-client/pkg/record"
)

// Prometheus metrics for the shard worker pool.
var (
	chunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualys_chunks_total",
		Help: "Processed ID chunks by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	shardWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualys_shard_workers",
		Help: "Worker count of the most recent sharded pull",
	})
)

// Shard defaults.
const (
	DefaultChunkSize = 3000
	DefaultThreads   = 5
)

// PartialListing reports a listing that completed with failures: the records
// gathered so far plus the per-chunk (or per-page) errors.
type PartialListing struct {
	Partial *record.List
	Errs    []error
}

func (e *PartialListing) Error() string {
	return fmt.Sprintf("qualys: partial listing: %d records kept, %d failures (first: %v)",
		e.Partial.Len(), len(e.Errs), e.Errs[0])
}

// Unwrap exposes the aggregated errors to errors.Is/As.
func (e *PartialListing) Unwrap() []error { return e.Errs }

// ShardOptions controls a sharded pull.
type ShardOptions struct {
	// IDs is the candidate ID set: comma-separated values, hyphenated
	// ranges, or a mix ("1,5,100-200"). Empty means the engine discovers the
	// set with a lightweight ids-only pre-call.
	IDs string

	// IDList supplies the candidate set as a collection instead; keys must
	// be numeric. Takes precedence over IDs.
	IDList *record.List

	// ChunkSize is the number of IDs per work item. Default 3,000.
	ChunkSize int

	// Threads is the worker count. Default 5, clamped to the remote
	// concurrency limit when one has been observed.
	Threads int

	// Pagination configures the per-chunk listing calls.
	Pagination Options
}

// chunk is one contiguous sub-range of the sorted candidate set.
type chunk struct {
	low, high int64
}

func (c chunk) param() string {
	if c.low == c.high {
		return strconv.FormatInt(c.low, 10)
	}
	return fmt.Sprintf("%d-%d", c.low, c.high)
}

// FetchSharded partitions the candidate ID set into chunks and drains them
// with a bounded worker pool, merging every page into one shared collection.
// Chunk failures do not stop the pool; they are aggregated into a
// PartialListing returned alongside the merged partial result.
func (e *Engine) FetchSharded(ctx context.Context, module, endpoint string, opts ShardOptions) (*record.List, error) {
	ids, err := e.resolveIDSet(ctx, module, endpoint, opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return record.NewList(), nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunks := partition(ids, chunkSize)

	// A single chunk starves the pool; degenerate to one ID per work item so
	// every worker pulls.
	if len(chunks) == 1 && len(ids) > 1 {
		chunks = partition(ids, 1)
	}

	threads := e.clampThreads(opts.Threads, len(chunks))
	shardWorkers.Set(float64(threads))

	label := module + "." + endpoint
	e.logger.Info().
		Str("endpoint", label).
		Int("ids", len(ids)).
		Int("chunks", len(chunks)).
		Int("threads", threads).
		Msg("Starting sharded pull")

	out := record.NewList()
	queue := make(chan chunk, len(chunks))
	for _, c := range chunks {
		queue <- c
	}
	close(queue)

	var (
		wg     sync.WaitGroup
		errMu  sync.Mutex
		failed []error
	)

	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for c := range queue {
				select {
				case <-ctx.Done():
					errMu.Lock()
					failed = append(failed, fmt.Errorf("chunk %s: %w", c.param(), ctx.Err()))
					errMu.Unlock()
					return
				default:
				}

				pageOpts := opts.Pagination
				pageOpts.Call = cloneCall(pageOpts.Call)
				if pageOpts.Call.Params == nil {
					pageOpts.Call.Params = map[string]string{}
				}
				pageOpts.Call.Params["ids"] = c.param()

				part, err := e.FetchAll(ctx, module, endpoint, pageOpts)
				if err != nil {
					var partial *PartialListing
					if errors.As(err, &partial) {
						out.Extend(partial.Partial)
					}
					e.logger.Warn().
						Int("worker_id", workerID).
						Str("chunk", c.param()).
						Err(err).
						Msg("Chunk failed")
					chunksTotal.WithLabelValues(label, "failed").Inc()
					errMu.Lock()
					failed = append(failed, fmt.Errorf("chunk %s: %w", c.param(), err))
					errMu.Unlock()
					continue
				}

				out.Extend(part)
				chunksTotal.WithLabelValues(label, "ok").Inc()
				e.logger.Debug().
					Int("worker_id", workerID).
					Str("chunk", c.param()).
					Int("records", part.Len()).
					Msg("Chunk complete")
			}
		}(w)
	}
	wg.Wait()

	if len(failed) > 0 {
		listingsTotal.WithLabelValues(label, "partial").Inc()
		return out, &PartialListing{Partial: out, Errs: failed}
	}

	e.logger.Info().
		Str("endpoint", label).
		Int("records", out.Len()).
		Msg("Sharded pull complete")
	return out, nil
}

// clampThreads applies the sizing rules: warn past the CPU count, clamp to
// the remote concurrency limit, and never run more workers than chunks.
func (e *Engine) clampThreads(threads, chunks int) int {
	if threads <= 0 {
		threads = DefaultThreads
	}

	if cpus := runtime.NumCPU(); threads > cpus {
		e.logger.Warn().
			Int("threads", threads).
			Int("cpus", cpus).
			Msg("Thread count exceeds host CPU count")
	}

	if limit := e.client.Credentials().Limits().ConcurrencyCap(); limit > 0 && threads > limit {
		e.logger.Warn().
			Int("threads", threads).
			Int("limit", limit).
			Msg("Thread count clamped to remote concurrency limit")
		threads = limit
	}

	if threads > chunks {
		threads = chunks
	}
	return threads
}

// resolveIDSet produces the sorted candidate ID set from the options or, when
// none was supplied, from an ids-only pre-call.
func (e *Engine) resolveIDSet(ctx context.Context, module, endpoint string, opts ShardOptions) ([]int64, error) {
	if opts.IDList != nil {
		ids := make([]int64, 0, opts.IDList.Len())
		for _, key := range opts.IDList.Keys() {
			n, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("non-numeric id %q in candidate set", key)
			}
			ids = append(ids, n)
		}
		sortIDs(ids)
		return ids, nil
	}

	if opts.IDs != "" {
		return ParseIDSet(opts.IDs)
	}

	// Lightweight pre-call: identifiers only, no truncation.
	pre := opts.Pagination
	pre.Call = cloneCall(pre.Call)
	if pre.Call.Params == nil {
		pre.Call.Params = map[string]string{}
	}
	pre.Call.Params["details"] = "none"
	pre.Call.Params["truncation_limit"] = "0"

	list, err := e.FetchAll(ctx, module, endpoint, pre)
	if err != nil {
		return nil, fmt.Errorf("id discovery pre-call: %w", err)
	}

	ids := make([]int64, 0, list.Len())
	for _, key := range list.Keys() {
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue // non-numeric identities cannot shard
		}
		ids = append(ids, n)
	}
	sortIDs(ids)
	return ids, nil
}

// ParseIDSet parses a caller-supplied ID expression: comma-separated values
// and hyphenated ranges, whitespace trimmed, empty elements dropped. The
// result is sorted ascending with duplicates removed.
func ParseIDSet(expr string) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if low, high, ok := strings.Cut(part, "-"); ok {
			lo, err := strconv.ParseInt(strings.TrimSpace(low), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad id range %q: %w", part, err)
			}
			hi, err := strconv.ParseInt(strings.TrimSpace(high), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad id range %q: %w", part, err)
			}
			if hi < lo {
				return nil, fmt.Errorf("bad id range %q: end before start", part)
			}
			for n := lo; n <= hi; n++ {
				if !seen[n] {
					seen[n] = true
					ids = append(ids, n)
				}
			}
			continue
		}

		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", part, err)
		}
		if !seen[n] {
			seen[n] = true
			ids = append(ids, n)
		}
	}

	sortIDs(ids)
	return ids, nil
}

// FormatIDSet renders ids the way call parameters expect: collection inputs
// joined with commas, a contiguous run as low-high, a single value verbatim.
func FormatIDSet(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	if len(ids) == 1 {
		return strconv.FormatInt(ids[0], 10)
	}

	sorted := append([]int64(nil), ids...)
	sortIDs(sorted)

	contiguous := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d-%d", sorted[0], sorted[len(sorted)-1])
	}

	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, ",")
}

// partition splits the sorted set into fixed-size chunks. Chunk boundaries
// come from set positions, so ranges never overlap.
func partition(ids []int64, size int) []chunk {
	var chunks []chunk
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, chunk{low: ids[start], high: ids[end-1]})
	}
	return chunks
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
