package services

// Confirmer answers yes/no questions that need an operator decision before an
// operation proceeds: suspected duplicate folders, empty-comment overrides,
// status regressions. The CLI supplies interactive and flag-driven
// implementations; tests supply stubs.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm approves every prompt. Used by --yes flags and batch modes.
var AlwaysConfirm Confirmer = ConfirmerFunc(func(string) bool { return true })

// NeverConfirm declines every prompt.
var NeverConfirm Confirmer = ConfirmerFunc(func(string) bool { return false })
