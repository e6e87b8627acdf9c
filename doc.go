// Package mtrie implements a longest-prefix-match forwarding table for a
// data-plane stack: an IPv4 multibit stride trie and an IPv6 binary
// Patricia-style trie, sharing a flat shadow rule table that preserves
// LPM semantics across overlapping inserts and removes.
//
// Both tries draw their nodes from fixed, pre-reserved pools (Arena4,
// Arena6) threaded with intrusive free lists, so that insert and remove
// never allocate trie nodes from the Go heap after startup. Neither tree
// takes locks or issues memory barriers; see Tree4 for what that means
// for a Search running alongside Insert or Remove.
package mtrie
