// Package fetch implements the per-source-kind strategies that bring a
// package onto disk and refresh it in place. Version-control kinds shell
// out to git or hg through a Runner; the archive kind downloads a zip
// over HTTP and unpacks it natively. A Registry maps each
// manifest.SourceKind to exactly one Strategy.
package fetch
