// Package cpu implements the CPU parallel dispatch engine: it partitions a
// batch into per-sample (or per-frame) work items and load-balances them
// over the injected worker pool.
package cpu

import (
	"fmt"
	"sort"

	"github.com/batchflow-ml/batchflow/internal/batch"
	"github.com/batchflow-ml/batchflow/internal/metrics"
	"github.com/batchflow-ml/batchflow/internal/op"
)

// Primitive is the per-item compute callback. out and in are the full
// samples when frame == -1, or per-frame views otherwise. thread indexes
// the pool worker running the item.
type Primitive func(thread int, out, in *batch.Sample, sample, frame int) error

type workItem struct {
	sample int
	frame  int // -1 when the whole sample is one item
	weight int64
}

// frameDecomposition decides whether the batch decomposes into per-frame
// work items and validates that the tagged sequence axis is outermost
// (frames must be contiguous to slice; an interior axis is a
// compatibility constraint, not silently ignored). Operators call it from
// Setup so the violation surfaces before shape negotiation completes.
func frameDecomposition(b *batch.Batch, baseRank int) (bool, error) {
	frameAxis := b.Layout().FrameAxis()
	perFrame := frameAxis >= 0 && b.Rank() > baseRank
	if perFrame && frameAxis != 0 {
		return false, fmt.Errorf("%w: sequence axis must be outermost, layout %q tags axis %d",
			op.ErrSchemaMismatch, b.Layout(), frameAxis)
	}
	return perFrame, nil
}

// planWork decomposes a batch into work items, one per sample, or one per
// frame along the layout's sequence axis when the sample rank exceeds the
// operator's base rank. Items are ordered by weight descending: the pool
// drains opportunistically, so starting the largest items first minimizes
// the idle tail.
func planWork(b *batch.Batch, baseRank int) ([]workItem, error) {
	perFrame, err := frameDecomposition(b, baseRank)
	if err != nil {
		return nil, err
	}

	var items []workItem
	for i := 0; i < b.Len(); i++ {
		shape := b.Sample(i).Shape()
		if !perFrame {
			items = append(items, workItem{sample: i, frame: -1, weight: shape.Volume()})
			continue
		}
		frameWeight := shape[1:].Volume()
		for f := int64(0); f < shape[0]; f++ {
			items = append(items, workItem{sample: i, frame: int(f), weight: frameWeight})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].weight > items[j].weight
	})
	return items, nil
}

// Dispatch runs a primitive across input batch 0 / output batch 0 of the
// workspace. All items are submitted with their weight as a scheduling
// hint and the pool is joined before returning: no partial results are
// ever exposed.
func Dispatch(ws *op.Workspace, operator string, baseRank int, prim Primitive) error {
	in, out := ws.Input(0), ws.Output(0)
	items, err := planWork(in, baseRank)
	if err != nil {
		return err
	}

	for _, it := range items {
		it := it
		ws.Pool.Submit(func(thread int) error {
			src, dst := in.Sample(it.sample), out.Sample(it.sample)
			if it.frame >= 0 {
				var ferr error
				if src, ferr = src.Frame(it.frame); ferr != nil {
					return ferr
				}
				if dst, ferr = dst.Frame(it.frame); ferr != nil {
					return ferr
				}
			}
			metrics.WorkItems.WithLabelValues(operator).Inc()
			return prim(thread, dst, src, it.sample, it.frame)
		}, it.weight)
	}
	return ws.Pool.Join()
}
