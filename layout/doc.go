// Package layout answers "where/what is X" for a particular build of the
// MongoDB server.
//
// Struct layouts, enum name tables, symbol names, and even whole features
// differ across server releases and toolchain revisions. A Fingerprint
// identifies one build: the server version triple, the compiler that
// produced the binary, and whether it is a debug build. A Resolver maps a
// (Fingerprint, fact key) pair to a concrete layout fact through an
// ordered rule table evaluated first-match-wins. A fact with no matching
// rule is an UnsupportedVersion error, never a silent fallback to some
// other release's layout: guessing a layout misrepresents target state.
//
// Adding support for a new server release is a data change: append rules
// to the table.
package layout
