// Package household owns the bot's mutable state: the chore registry, the
// roster and the channel bindings.
//
// All mutations go through Service.Update, which applies the change to a
// copy, writes the full snapshot to the store and only then commits. Readers
// get deep copies from Service.Snapshot and never observe a partial update.
package household
