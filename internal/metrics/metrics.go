package metrics

import "sync/atomic"

var (
	recordsProcessed  int64
	extractionsFailed int64
	batchesCommitted  int64
	runsStarted       int64
	runsFailed        int64
)

func IncProcessed()        { atomic.AddInt64(&recordsProcessed, 1) }
func IncExtractionFailed() { atomic.AddInt64(&extractionsFailed, 1) }
func IncBatchCommitted()   { atomic.AddInt64(&batchesCommitted, 1) }
func IncRunStarted()       { atomic.AddInt64(&runsStarted, 1) }
func IncRunFailed()        { atomic.AddInt64(&runsFailed, 1) }

func Snapshot() map[string]int64 {
	return map[string]int64{
		"records_processed":  atomic.LoadInt64(&recordsProcessed),
		"extractions_failed": atomic.LoadInt64(&extractionsFailed),
		"batches_committed":  atomic.LoadInt64(&batchesCommitted),
		"runs_started":       atomic.LoadInt64(&runsStarted),
		"runs_failed":        atomic.LoadInt64(&runsFailed),
	}
}
