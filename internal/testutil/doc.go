// Package testutil contains builders for core events and sessions shared by
// package tests. It is not intended for production use.
package testutil
