// Package registrytest provides an in-process npm registry for tests.
//
// The registry serves the two endpoints stackpm consumes: package metadata
// at "/<name>" and tarballs at "/<name>/-/<basename>-<version>.tgz". It
// records per-path request counts and in-flight peaks, and can inject
// failures and latency, so tests can assert on caching, retry and throttling
// behavior.
//
//	reg := registrytest.New(t)
//	reg.Publish(registrytest.Package{
//	    Name:         "left-pad",
//	    Version:      "1.3.0",
//	    Dependencies: map[string]string{"repeat-string": "^1.0.0"},
//	})
//	client := npm.NewClient(integrations.NewClient(integrations.Options{}), reg.URL())
package registrytest
