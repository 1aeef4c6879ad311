// Package normalisers provides implementations of the Normaliser interface
// for the documentation formats accepted on import. Each normaliser turns
// one format into plain text ready for chunking.
//
// Normalisers are registered with a postprocessors.Pipeline by format.
package normalisers
