// Package snapshot converts node subtrees to plain snapshots and back.
//
// A snapshot is a map with reserved keys and one entry per field:
//
//  {
//    "_node_": "Group:Poster",
//    "_address_": "5f0c...",
//    "_owner_": 0,
//    "_children_": [ {...}, {"_invalid_": true} ],
//    "_observed_": ["title"],
//    "title": "hello",
//    "content": {"_circular_": "5f0c..."}
//  }
//
// Serialize breaks cycles with circular markers. Materialize builds a new
// subtree from a snapshot and Reconcile patches an existing one in place,
// preserving node identity. Codecs turn snapshots into bytes for the buffers
// shared between threads and for the store.
package snapshot
