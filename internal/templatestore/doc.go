// Package templatestore resolves template names to files in a templates directory.
//
// A template name is a file name, with or without extension. Names without an
// extension get the store's default (".html"):
//
//	invoice       -> {dir}/invoice.html
//	invoice.tmpl  -> {dir}/invoice.tmpl
//
// # Security
//
// Names are validated before touching the filesystem: no path separators, no
// NUL bytes, no leading dot. Resolved paths, symlinks included, must stay
// inside the templates directory.
package templatestore
