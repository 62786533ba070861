// Package bot is the chat surface of chorebot: command handlers, the chore
// board kept in the chore channel, reminder delivery and reaction-driven
// rotation.
//
// Handlers translate chat input into household operations and never touch
// state directly. The board follows household events, so every change
// (from a command or a rotation) re-renders the same way.
package bot
