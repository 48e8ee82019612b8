// Package vroom implements §4.J's public reader façade: it orchestrates
// components A through G (buffer load, chunk finding, parallel field
// indexing, type inference, column materialization) and exposes the
// result as a Table, following the same shape as the teacher's
// cmd/benchmark/main.go driving indexer.NewIndexer(cfg).Run() end to
// end, but packaged as a library entry point rather than a CLI.
package vroom

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/csvquery/vroom/internal/buffer"
	"github.com/csvquery/vroom/internal/column"
	"github.com/csvquery/vroom/internal/dialect"
	"github.com/csvquery/vroom/internal/errs"
	"github.com/csvquery/vroom/internal/lineparser"
	"github.com/csvquery/vroom/internal/typeinfer"
)

// defaultSampleRows is §4.F's K: the prefix length type inference
// samples before committing to a column's widened type.
const defaultSampleRows = 1000

// Config bundles the Dialect with this package's own tuning knobs,
// the same flat-struct style as the teacher's IndexerConfig — no
// flag-parsing, just documented zero-value defaults resolved in Open.
type Config struct {
	Dialect     dialect.Dialect
	SampleRows  int // prefix rows sampled for type inference; 0 means defaultSampleRows
	NumWorkers  int // 0 means Dialect.NumThreads, or runtime.NumCPU() if that is 0 too
	ErrorCap    int // PERMISSIVE collector capacity; 0 means unbounded
	BufPadding  int // 0 means buffer.DefaultPadding
	ChunkTarget int // bytes; 0 means Dialect.TargetChunkMiB (or 2 MiB)
	Verbose     bool // print a once-per-second row-count ticker during ReadAll
}

func (c Config) resolve() Config {
	if c.Dialect.Delimiter == 0 {
		// A zero Delimiter means the caller left Dialect at its Go
		// zero value rather than customizing dialect.Defaults(); a
		// real dialect never uses byte 0 as a separator, so this
		// sentinel keeps Config{} usable the way the teacher's own
		// zero-value IndexerConfig documents sensible fallbacks.
		c.Dialect = dialect.Defaults()
	}
	if c.SampleRows <= 0 {
		c.SampleRows = defaultSampleRows
	}
	if c.NumWorkers <= 0 {
		if c.Dialect.NumThreads > 0 {
			c.NumWorkers = c.Dialect.NumThreads
		} else {
			c.NumWorkers = runtime.NumCPU()
		}
	}
	if c.BufPadding <= 0 {
		c.BufPadding = buffer.DefaultPadding
	}
	if c.ChunkTarget <= 0 {
		miB := c.Dialect.TargetChunkMiB
		if miB <= 0 {
			miB = 2
		}
		c.ChunkTarget = miB * 1024 * 1024
	}
	return c
}

// SchemaField is one column's (name, type) pair, §4.J's schema()
// element.
type SchemaField struct {
	Name string
	Type typeinfer.DataType
}

// Schema is the ordered field list §4.J's schema() accessor returns.
type Schema []SchemaField

// Reader drives the A→G pipeline over one loaded buffer and exposes
// the resulting Table, mirroring §4.J's CsvReader façade.
type Reader struct {
	cfg       Config
	buf       *buffer.AlignedBuffer
	ownsBuf   bool
	collector *errs.Collector
	schema    Schema
	table     *column.Table
	dataStart int // byte offset where data rows begin, past a header row if present

	rowsProcessed atomic.Int64 // progress counter for the Verbose ticker
}

// Open memory-maps path and initializes a Reader over it (§4.J
// open). The dialect's ErrorMode and the rest of cfg apply to every
// subsequent ReadAll call.
func Open(path string, cfg Config) (*Reader, error) {
	cfg = cfg.resolve()
	buf, err := buffer.LoadFile(path, cfg.BufPadding)
	if err != nil {
		return nil, fmt.Errorf("vroom: open %s: %w", path, err)
	}
	return newReader(buf, true, cfg)
}

// OpenBuffer adopts an already-loaded AlignedBuffer (§4.J
// open_from_buffer). The Reader does not take ownership: the caller
// must Close buf once the Reader (and any Table it produced) is done
// with it.
func OpenBuffer(buf *buffer.AlignedBuffer, cfg Config) (*Reader, error) {
	return newReader(buf, false, cfg.resolve())
}

func newReader(buf *buffer.AlignedBuffer, ownsBuf bool, cfg Config) (*Reader, error) {
	r := &Reader{
		cfg:       cfg,
		buf:       buf,
		ownsBuf:   ownsBuf,
		collector: errs.NewCollector(cfg.Dialect.ErrorMode, cfg.ErrorCap),
	}
	if err := r.inferSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the underlying buffer if this Reader loaded it
// itself (via Open); a Reader built with OpenBuffer never closes the
// caller's buffer.
func (r *Reader) Close() error {
	if r.ownsBuf && r.buf != nil {
		return r.buf.Close()
	}
	return nil
}

// Schema returns the inferred field names and types (§4.J schema()).
func (r *Reader) Schema() Schema {
	return r.schema
}

// RowCount returns the materialized table's row count, or 0 before
// ReadAll has run.
func (r *Reader) RowCount() int {
	if r.table == nil {
		return 0
	}
	return r.table.RowCount()
}

// HasErrors reports whether any diagnostics were collected during
// schema inference or ReadAll.
func (r *Reader) HasErrors() bool {
	return len(r.collector.Items()) > 0
}

// Errors returns a snapshot of every diagnostic collected so far.
func (r *Reader) Errors() []*errs.Error {
	return r.collector.Items()
}

// inferSchema parses the header row (if configured) and samples up to
// cfg.SampleRows data rows to widen each column's type (§4.F), without
// materializing the full table yet.
func (r *Reader) inferSchema() error {
	data := r.buf.Data()
	pos := 0

	var names []string
	if r.cfg.Dialect.HasHeader && len(data) > 0 {
		headerFields := lineparser.ParseHeader(data, r.cfg.Dialect)
		names = headerFields
		_, consumed := lineparser.ParseRow(data, r.cfg.Dialect)
		pos = consumed
	}
	r.dataStart = pos

	types := make([]typeinfer.DataType, len(names))
	rowsSeen := 0
	scanPos := pos
	for scanPos < len(data) && rowsSeen < r.cfg.SampleRows {
		fields, consumed := lineparser.ParseRow(data[scanPos:], r.cfg.Dialect)
		if consumed == 0 {
			break
		}
		if len(names) == 0 {
			names = syntheticNames(len(fields))
			types = make([]typeinfer.DataType, len(fields))
		}
		for i, f := range fields {
			if i >= len(types) {
				break
			}
			var t typeinfer.DataType
			if f.Null {
				t = typeinfer.NA
			} else {
				t = typeinfer.InferField(f.Value, r.cfg.Dialect)
			}
			types[i] = typeinfer.Wider(types[i], t)
		}
		scanPos += consumed
		rowsSeen++
	}

	for i, t := range types {
		if t == typeinfer.Unknown {
			types[i] = typeinfer.String
		}
	}

	schema := make(Schema, len(names))
	for i, name := range names {
		schema[i] = SchemaField{Name: name, Type: types[i]}
	}
	r.schema = schema
	return nil
}

func syntheticNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("X%d", i+1)
	}
	return names
}
