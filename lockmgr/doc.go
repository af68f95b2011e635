/*
Package lockmgr reconstructs the MongoDB server's LockManager state from a
memory snapshot.

The LockManager shards its resource map into a fixed array of partitions,
each holding a swiss-table from ResourceId to LockHead. A dump walks every
partition, decodes each LockHead's granted and pending request lists in
their stored FIFO order, and correlates every request's locking thread
against the snapshot's thread registry.

Decode failures stay local: a LockHead with an unmodeled resource type or a
request pointing at unreadable memory reports an inline error while its
siblings still decode. Only failing to locate the LockManager itself aborts
a dump, since then there is nothing to walk.
*/
package lockmgr
