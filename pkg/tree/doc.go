/*
Package tree implements the mutable value graph that bindery observes.

A context is an explicit tagged tree instead of arbitrary host values:

  - Undefined: the Go nil value (absent property, out of range index).
  - Primitive: any comparable scalar (bool, string, numbers, ...).
  - Object: *Object, an ordered set of named slots.
  - Array: *Array, a list of positional slots.

Every property of an Object and every index of an Array lives in a *Slot. A
Slot may carry a Trap which then owns the get/set semantics of that property.
Arrays may carry an Interceptor which wraps the mutating operations (Append,
RemoveLast, RemoveFirst, Prepend, Sort, Reverse, Splice).

The package knows nothing about listeners; it only offers the hooks. The
reactive engine installs and removes them.
*/
package tree
