// Package archive reads and unpacks package tarballs.
//
// npm tarballs are gzip-compressed tar streams whose entries share a single
// wrapper directory (usually "package/"). Both [ReadFile] and [Extract] take
// a strip depth that drops that many leading path components from every
// entry, so a strip of 1 maps "package/lib/index.js" to "lib/index.js".
//
// Malformed input (bad gzip header, truncated tar, entries escaping the
// destination directly or through a symlink) yields an ARCHIVE_INVALID
// error. Extraction is not atomic: a
// failure part-way leaves the entries written so far on disk.
package archive
