/*
Package printers formats decoded target values the way the MongoDB server's
own debugging tooling would show them.

A Printer is constructed per value by a Factory registered in a Registry.
Factories live in named collections that can be enabled and disabled as a
group; a disabled collection is invisible to lookup. Within the enabled
collections, an exact type-name match always beats a pattern match, and
pattern matches are tried in registration order.

Printers advertise capabilities through small optional interfaces:
ToStringer for a one-line summary, ChildLister for structured children, and
DisplayHinter to distinguish array-like from map-like children. Render walks
these and never fails: a decode error is folded into the output at the node
that caused it.
*/
package printers
