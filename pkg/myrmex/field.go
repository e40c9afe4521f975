package myrmex

import "myrmex/internal/field"

// ErrExclusiveAccess is the panic value raised when concurrent mutation
// breaks the single-writer-per-step contract on a field.
var ErrExclusiveAccess = field.ErrExclusiveAccess

// Field re-exports so embedders build simulations without importing internal
// packages.
type (
	Field                                  = field.Field
	Hypergraph[O comparable, L comparable] = field.Hypergraph[O, L]
	HyperEdge[L comparable]                = field.HyperEdge[L]
	EdgeOptions[L comparable]              = field.EdgeOptions[L]
)

func NewHypergraph[O comparable, L comparable]() *Hypergraph[O, L] {
	return field.NewHypergraph[O, L]()
}

func Simple[L comparable]() EdgeOptions[L] {
	return field.Simple[L]()
}

func Labeled[L comparable](label L) EdgeOptions[L] {
	return field.Labeled(label)
}

func Weighted[L comparable](weight float32) EdgeOptions[L] {
	return field.Weighted[L](weight)
}

func WeightedLabeled[L comparable](label L, weight float32) EdgeOptions[L] {
	return field.WeightedLabeled(label, weight)
}
