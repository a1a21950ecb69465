// Package directive extracts structured tool invocations from model output.
//
// The wire format is a bounded tag region inside otherwise free-form text:
//
//	<tool code="KIND" path="OPTIONAL">BODY</tool>
//
// replace_lines bodies nest <search>...</search> and <replace>...</replace>.
// Bodies are literal text with no escaping; regions never nest, and the
// parser always stops at the first closing tag so adjacent directives are
// never swallowed.
package directive

import "errors"

// Kind identifies a tool directive type.
type Kind string

const (
	KindReadFile     Kind = "read_file"
	KindWriteFile    Kind = "write_file"
	KindReplaceLines Kind = "replace_lines"
	KindListFiles    Kind = "list_files"
	KindRunCommand   Kind = "run_command"
	KindRestoreFile  Kind = "restore_file"
)

// Known reports whether the kind is part of the dispatch set. Unknown kinds
// are carried through parsing but skipped by the executor, so newer models
// can emit directives an older build does not understand.
func (k Kind) Known() bool {
	switch k {
	case KindReadFile, KindWriteFile, KindReplaceLines,
		KindListFiles, KindRunCommand, KindRestoreFile:
		return true
	}
	return false
}

// RequiresPath reports whether the kind needs a path attribute.
// list_files takes no operand and run_command carries its command line
// in the body, so neither names a path.
func (k Kind) RequiresPath() bool {
	return k.Known() && k != KindListFiles && k != KindRunCommand
}

// Directive is a single parsed tool invocation.
type Directive struct {
	Kind Kind
	Path string
	Body string
}

// ErrMalformed reports a structurally invalid directive, such as a
// replace_lines body missing its search or replace region, or a missing
// path on a kind that needs one.
var ErrMalformed = errors.New("malformed directive")
