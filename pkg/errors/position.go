package errors

import "jscore/pkg/source"

// Position locates a span of source text, carried on an EngineError so a
// host can render "file:line:column" diagnostics. Runtime errors that cannot
// be tied to a token still carry a Position, usually the call-site that
// triggered them.
type Position struct {
	Line     int // 1-based
	Column   int // 1-based, rune index within the line
	StartPos int // 0-based byte offset
	EndPos   int // 0-based byte offset, exclusive
	Source   *source.File
}
