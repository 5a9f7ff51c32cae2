// Package todo turns free-form assistant text into a structured,
// at-most-two-level tree of plan steps.
//
// The source of the text is a language model, which is not contractually
// obligated to produce a fixed grammar. The parser is therefore a
// tolerant line-oriented scanner built on two independent patterns (one
// for top-level items, one for sub-items) with an explicit
// ignore-everything-else rule, rather than a recursive grammar. Source
// numbering is never trusted: sibling indexes are assigned sequentially,
// and sub-items attach to the top-level item that is currently open.
//
// Known limitation: numbering deeper than two levels ("1.2.3") is still
// captured by the sub-item pattern and collapsed into the second level,
// with the residual numbering left in the step text. The tree depth is
// therefore always exactly two.
package todo
