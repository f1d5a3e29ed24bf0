// Package interrupt turns SIGINT and SIGTERM into context cancellation.
//
// A Guard is armed around a long running operation. The first signal
// cancels the guarded context so that the operation can stop at a safe
// point and finish its pending work. Once the operation has returned,
// the caller reports the interruption with Err, which yields an *Error
// carrying the conventional exit code.
//
//	ctx, guard := interrupt.Guard(ctx)
//	defer guard.Stop()
//	stats, err := spider.Crawl(ctx, seed)
//	if guard.Interrupted() {
//		return guard.Err()
//	}
package interrupt
