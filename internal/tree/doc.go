// Package tree holds the structural algorithms over a types.WindowTree:
// insertion with position shifting, removal with reparenting, subtree
// removal, position normalization, and restoration matching between a
// reopened window and a retained closed one.
//
// Functions here mutate the trees they are given and never persist;
// internal/tracker owns the state and decides when to save.
package tree
