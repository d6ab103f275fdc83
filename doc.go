/*
Package bindery is a fine-grained change observation engine over mutable
nested value graphs, built as the reactivity core beneath a data binding layer.

Each owner id holds one context root: an ordered tree of objects, arrays and
primitives (see package tree). Callers subscribe to a dotted identifier such
as "user.address.city" or "items.0.label" and are notified synchronously when
the value at that identifier changes, whether it was written directly,
replaced through an ancestor, or moved by an array operation.

# Concept

Observing an identifier installs traps on the property slots along its path.
A write through a trap notifies the listeners of that identifier and
recomputes every observed identifier below it. Array operations (append,
remove, prepend, sort, reverse, splice) emit change records and notify length
and index listeners. Interception is removed as soon as nothing below a slot
is observed, so unobserved parts of the graph stay plain values.

Everything is synchronous: when a write returns, every listener it triggered
has run. Listeners may write observed values themselves; nesting is bounded
(see WithMaxDepth).

# Usage

	eng := bindery.New()
	eng.SetContext("page", "user", map[string]any{"name": "ada"})

	stop := eng.ObserveFunc("page", "user.name", "header", func(newValue, oldValue any) {
		fmt.Println("name:", oldValue, "->", newValue)
	})
	defer stop()

	eng.SetContext("page", "user.name", "grace") // prints name: ada -> grace

	// Dispose removes every listener registered by an owner and destroys
	// the root it owns.
	eng.Dispose("header")

# Persistence

With WithStore, Save and Load persist roots through a ports.SnapshotStore
(memory, file or redis adapters). Loading a snapshot into a live root
notifies observers of the values that changed.
*/
package bindery
