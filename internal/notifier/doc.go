// Package notifier delivers outbound notifications (chore reminders)
// through a bounded queue, a small worker pool, a token-bucket rate limit
// and jittered retry.
//
// Delivery is best-effort: a full queue rejects the notification and a send
// that keeps failing is reported on the event bus, never retried forever.
// When the pipeline is disabled, Notify sends inline with a single attempt.
package notifier
