// Package driver wraps invocations of the external configuration driver
// (cmsDriver.py by default) and memoizes them.
//
// # Reading Guide
//
//   - descriptor.go: Descriptor, the canonical form of one driver invocation
//   - hash.go: identity digests over the canonical text
//   - cachefile.go: the "#<digest>" line stored at the top of each generated artifact
//   - runner.go: process execution with line-by-line output streaming
//   - materialize.go: the run/skip decision and the Ensure entry point
//
// Cache validity is self-describing: the only persistent state is the generated
// artifact itself, whose first line carries the digest of the descriptor that
// produced it. There is no side index. This only works for textual artifacts
// that tolerate one extra leading line; binary outputs must not be used as
// cache targets.
package driver
