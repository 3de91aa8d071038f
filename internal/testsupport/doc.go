// Package testsupport builds throwaway configs, session stores and image
// fixtures for package tests.
package testsupport
