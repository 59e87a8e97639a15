// Package archive streams comic files into one or more size-bounded ZIP
// parts.
//
// Entries are stored rather than recompressed: comic containers are already
// compressed, so deflating them again burns CPU for near-zero gain. Parts are
// written one at a time; a part is flushed and closed before the next one
// opens, which bounds open file handles and write buffers to a single part
// regardless of bundle size. archive/zip emits ZIP64 records automatically
// once sizes cross 4 GiB, so oversized bundles need no special handling here.
//
// Missing or unreadable files never abort a build: each is recorded as a
// skip with a reason and the builder moves on. Only producing zero entries
// across the whole request is a failure.
package archive
