// Package conflict records and resolves order-number collisions that need a
// human decision.
//
// A collision happens when a re-exported order specification carries an
// order number that already exists with different contents, or a suffixed
// number ("53335-a") whose base order is already imported. The resolver keeps
// at most one pending record per (order number, base order number) pair,
// assigns ownership through the document author mapping and lets a reviewer
// close the record exactly once.
package conflict
