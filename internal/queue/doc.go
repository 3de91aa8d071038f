// Package queue holds the in-memory batch queue and drives each item's
// lifecycle.
//
// Items move through idle -> processing -> success|error. The only backward
// transitions are error -> idle (user retry) and processing -> idle (a stop
// observed while the item was in flight). The Store publishes an immutable
// Queue snapshot after every mutation, so readers such as the view layer and
// the control surface never observe a partially-updated item, and every write
// is keyed by item ID with an existence check to tolerate removal races.
//
// The queue is deliberately transient; nothing here is persisted.
package queue
