// Package middleware contains the access gate that authenticates incoming
// requests and enforces a declarative, ordered route policy table.
package middleware
