// Package pipeline turns an authored Markdown body into a syntax tree.
//
// The chain runs in three phases:
//   - Phase A expands container directives (:::code, :::name) into nodes and
//     leaves placeholder paragraphs in the Markdown source
//   - Phase B parses the source with goldmark and converts the result into a
//     syntax.Node tree, splicing directive nodes back in
//   - Phase C applies ordered tree stages: math, extended syntax, figures
//     and footnotes
//
// Every phase is a pure function of its input. The chain holds no mutable
// state after construction and may be shared across goroutines.
package pipeline
