// Package tgui builds Telegram HTML messages.
//
// Everything is HTML parse mode: plain strings passed to the builder are
// escaped, values of type H are trusted as already safe.
package tgui
