// Package platform wraps the filesystem calls whose behaviour differs
// between Unix and Windows: directory symlinks used for plugin links,
// and permission bits restored when unpacking archives.
package platform
