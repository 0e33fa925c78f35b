package convert

import "github.com/RoaringBitmap/roaring/v2"

// Result records what happened to each record of a capture, by stream
// position. Non-HTTP records appear in no set.
type Result struct {
	accepted *roaring.Bitmap
	skipped  *roaring.Bitmap
	failed   *roaring.Bitmap
}

func newResult() *Result {
	return &Result{
		accepted: roaring.New(),
		skipped:  roaring.New(),
		failed:   roaring.New(),
	}
}

// Accepted returns the number of rendered flows.
func (r *Result) Accepted() int { return int(r.accepted.GetCardinality()) }

// Skipped returns the number of flows rejected by the filters.
func (r *Result) Skipped() int { return int(r.skipped.GetCardinality()) }

// Failed returns the number of records that could not be decoded.
func (r *Result) Failed() int { return int(r.failed.GetCardinality()) }

// AcceptedPositions returns the stream positions of rendered flows in
// ascending order.
func (r *Result) AcceptedPositions() []uint32 { return r.accepted.ToArray() }

// SkippedPositions returns the stream positions of filtered-out flows in
// ascending order.
func (r *Result) SkippedPositions() []uint32 { return r.skipped.ToArray() }

// FailedPositions returns the stream positions of undecodable records in
// ascending order.
func (r *Result) FailedPositions() []uint32 { return r.failed.ToArray() }
