// Package testutil holds helpers shared by staffdesk tests: an in-process
// fixture API with a signed-in identity, test-home file helpers and a few
// assertions.
package testutil
