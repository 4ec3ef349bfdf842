// Package testsupport provides helpers shared by package tests: temp-backed
// configurations and pre-opened stores and catalogs.
package testsupport
