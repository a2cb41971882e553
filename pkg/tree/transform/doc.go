// Package transform rewrites dependency trees to reduce duplicate installs.
//
// # Hoisting
//
// [Hoist] lifts grandchildren into their grandparent's level when nothing
// there conflicts, the same flattening npm and yarn apply to node_modules.
// For every level, after its children have been hoisted themselves, each
// grandchild g under a direct child c is:
//
//   - promoted next to c when no direct child is named g.Name
//   - dropped when a direct child already has g's name and reference
//   - left under c when a direct child has g's name at another reference
//
// Each level is processed once, in child order, against the list of
// children that existed before the level's promotions began. Nodes promoted
// at a level are not examined again at that level, so duplicates that only
// become removable after a promotion survive the pass. Trees that settle in
// one pass, such as the shallow trees of most projects, are unchanged by a
// second Hoist; deeper trees may shrink further.
package transform
