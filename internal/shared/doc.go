// Package shared holds cross-cutting utilities that belong to no single
// domain package.
//
// The testutil subpackage provides a buffered slog handler so tests can
// assert on structured log output without parsing text.
//
// Code here must stay free of business logic and must not import other
// internal packages.
package shared
