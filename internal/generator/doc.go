// Package generator turns a prepared payload into metadata or a prompt.
//
// Generator builds the platform-aware instruction, calls the model through
// the Model interface and retries rate-limited calls with exponential
// backoff. It never touches the queue; the batch scheduler records the
// returned Result or error against the item.
package generator
