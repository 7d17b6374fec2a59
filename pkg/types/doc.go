// Package types defines the entity types, the local Storage interface, and
// the standard errors shared by the pawcart client packages.
package types
