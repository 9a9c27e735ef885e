// Package types reports which option variants it was compiled with.
package types

var first, second string

//featurescope:if a
func init() { first = "a type" }

//featurescope:if b
func init() { first = "b type" }

//featurescope:default
func init() { second = "default type" }

//featurescope:if b
func init() { second = "b type" }

// First returns the variant selected by the a/b options.
func First() string { return first }

// Second returns the default variant, or the b variant.
func Second() string { return second }
