// Package directory serves the alumni directory: authenticated profile
// search and lookup, plus an admin-only overview of the network.
package directory
