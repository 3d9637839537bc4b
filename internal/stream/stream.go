// Package stream implements the gateway's pull-based parallel chunk
// streaming pipeline: up to downloadThreads chunks are fetched and
// decrypted concurrently, but delivered to the reader strictly in
// submission order, so a client reading sequentially never sees
// out-of-order bytes even though the fetches themselves race.
//
// Grounded on the teacher's bounded-channel-as-backpressure idiom
// (semaphore/ and atomic/ use the same "channel sized to the worker
// pool, one slot per in-flight unit of work" shape): here the channel
// carries per-chunk result placeholders instead of raw values, so a
// slow chunk doesn't block the channel slots behind faster ones from
// starting, only from being delivered.
package stream

import (
	"context"
	"errors"
	"io"

	"github.com/traktion/anttp/internal/codec"
	"github.com/traktion/anttp/internal/netface"
)

type chunkResult struct {
	data []byte
	err  error
}

type pending struct {
	ready chan chunkResult
}

// RangeReader streams a byte range of a data map's reassembled content
// as an io.Reader, fetching and decrypting chunks with bounded
// parallelism.
type RangeReader struct {
	ctx    context.Context
	cancel context.CancelFunc

	net  netface.Client
	enc  codec.SelfEncryption
	dm   codec.DataMap

	from, to int64 // inclusive byte range within the reassembled content

	sem    chan struct{}
	order  []*pending
	cursor int

	curChunk   []byte
	curOffset  int
	chunkSize  int64
	globalPos  int64
}

// NewRangeReader builds a reader over [from, to] inclusive bytes of
// dm's reassembled content, using at most downloadThreads concurrent
// chunk fetches. Negative from/to follow the "from-end" convention:
// an offset of -N means N bytes before the end of the content.
func NewRangeReader(ctx context.Context, net netface.Client, enc codec.SelfEncryption, dm codec.DataMap, from, to int64, downloadThreads int) (*RangeReader, error) {
	total := dm.TotalSize
	from = normalizeOffset(from, total)
	to = normalizeOffset(to, total)

	if from < 0 || to >= total || from > to {
		return nil, errors.New("stream: invalid byte range")
	}

	if downloadThreads < 1 {
		downloadThreads = 1
	}

	cctx, cancel := context.WithCancel(ctx)
	r := &RangeReader{
		ctx:    cctx,
		cancel: cancel,
		net:    net,
		enc:    enc,
		dm:     dm,
		from:   from,
		to:     to,
		sem:    make(chan struct{}, downloadThreads),
	}

	if len(dm.ChunkAddresses) > 0 {
		r.chunkSize = total / int64(len(dm.ChunkAddresses))
		if r.chunkSize == 0 {
			r.chunkSize = total
		}
	}

	r.globalPos = from
	r.startFetchesFrom(r.chunkIndexFor(from))

	return r, nil
}

// normalizeOffset implements the negative-offset-from-end convention:
// -1 is the last byte, -total is the first.
func normalizeOffset(off, total int64) int64 {
	if off < 0 {
		return total + off
	}
	return off
}

func (r *RangeReader) chunkIndexFor(pos int64) int {
	if r.chunkSize == 0 {
		return 0
	}
	idx := int(pos / r.chunkSize)
	if idx >= len(r.dm.ChunkAddresses) {
		idx = len(r.dm.ChunkAddresses) - 1
	}
	return idx
}

// startFetchesFrom launches goroutines for every chunk in
// [startIdx, end], each gated by the semaphore so only downloadThreads
// run concurrently, and records an ordered slice of placeholders so
// Read can deliver results in submission order regardless of which
// fetch finishes first.
func (r *RangeReader) startFetchesFrom(startIdx int) {
	lastIdx := r.chunkIndexFor(r.to)

	for idx := startIdx; idx <= lastIdx; idx++ {
		p := &pending{ready: make(chan chunkResult, 1)}
		r.order = append(r.order, p)

		go r.fetchOne(idx, p)
	}
}

func (r *RangeReader) fetchOne(idx int, p *pending) {
	select {
	case r.sem <- struct{}{}:
	case <-r.ctx.Done():
		p.ready <- chunkResult{err: r.ctx.Err()}
		return
	}
	defer func() { <-r.sem }()

	a := r.dm.ChunkAddresses[idx]
	raw, err := r.net.FetchChunk(r.ctx, a)
	if err != nil {
		p.ready <- chunkResult{err: err}
		return
	}

	plain, err := r.enc.DecryptChunk(r.dm, idx, raw)
	p.ready <- chunkResult{data: plain, err: err}
}

// Read implements io.Reader, pulling fully-decrypted chunks from the
// ordered pending list and slicing out only the bytes within [from,
// to], including partial first and last chunks.
func (r *RangeReader) Read(p []byte) (int, error) {
	n := 0

	for n < len(p) {
		if len(r.curChunk) == 0 {
			if r.cursor >= len(r.order) {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}

			select {
			case res := <-r.order[r.cursor].ready:
				if res.err != nil {
					return n, res.err
				}
				r.curChunk = r.sliceToRange(r.cursor, res.data)
				r.cursor++
			case <-r.ctx.Done():
				return n, r.ctx.Err()
			}
			continue
		}

		copied := copy(p[n:], r.curChunk)
		r.curChunk = r.curChunk[copied:]
		n += copied
	}

	return n, nil
}

// sliceToRange trims a fully-decrypted chunk down to the bytes that
// fall within [from, to] for the first and last chunk in the range.
func (r *RangeReader) sliceToRange(idx int, data []byte) []byte {
	chunkStart := int64(idx) * r.chunkSize
	chunkEnd := chunkStart + int64(len(data)) - 1

	start := int64(0)
	if r.from > chunkStart {
		start = r.from - chunkStart
	}

	end := int64(len(data))
	if r.to < chunkEnd {
		end = r.to - chunkStart + 1
	}

	if start < 0 || start > int64(len(data)) || end < start {
		return nil
	}
	if end > int64(len(data)) {
		end = int64(len(data))
	}

	return data[start:end]
}

// Close releases the reader's fetch goroutines.
func (r *RangeReader) Close() error {
	r.cancel()
	return nil
}

var _ io.ReadCloser = (*RangeReader)(nil)
