// Package bom implements the paged indexed-blob container that underlies
// compiled asset archives. A container is a single file holding a header,
// an index table of (offset, length) pairs addressing opaque blobs, a
// free-block list, a directory of named variables, and ordered trees whose
// keys are opaque byte strings.
//
// The container imposes no types on blob contents; higher layers (package
// car) do.
package bom
