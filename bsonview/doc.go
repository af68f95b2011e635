/*
Package bsonview decodes BSON documents from raw byte buffers.

The decoder is deliberately forgiving about damaged input: a document read
out of a crashed process may be cut off mid-element or carry a corrupted
type tag. Decode keeps every element it could parse and records the failure
on the smallest node that contains it, so a partially-readable document
still renders its healthy prefix.

Values are decoded into plain Go types where one exists (float64, string,
bool, int32, int64) and into small named structs otherwise. Binary payloads
with subtype 4 are surfaced as uuid.UUID.
*/
package bsonview
