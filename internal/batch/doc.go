// Package batch drives queue items through preparation and generation.
//
// A Scheduler runs at most one batch at a time. Each run snapshots the ids
// that are idle or failed when it starts and dispatches them in fixed-size
// groups: every item in a group runs concurrently, the next group starts
// only after the whole group settles, and a short pause separates groups.
// Pause is observed between groups; Stop is observed before dispatch and at
// each checkpoint inside an item, rolling in-flight items back to idle.
package batch
