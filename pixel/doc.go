// Package pixel converts between the packed RGB frames applications work
// with and the packed UYVY 4:2:2 frames that travel on the wire.
//
// The conversions use BT.601 studio swing integer arithmetic. All functions
// are pure and safe to call concurrently with disjoint buffers; callers
// allocate both buffers at the exact documented sizes.
package pixel
