// Package slot defines the closed vocabularies for the axes along which an
// asset may vary: idiom, scale, appearance, size class, memory class,
// graphics class, display gamut, and direction. Each vocabulary maps
// bidirectionally between its canonical string form (as written in catalog
// manifests) and the 16-bit numeric code packed into rendition keys.
//
// Parsing an unknown string yields (zero value, false); callers report a
// warning and treat the attribute as unset. Decoding an unknown numeric
// code from an archive is a corruption error, raised by the caller.
package slot
