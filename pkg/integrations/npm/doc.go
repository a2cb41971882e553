// Package npm provides a client for npm-compatible registries.
//
// # Overview
//
// The client consumes two endpoints:
//
//   - GET <registry>/<name> returns the package document: dist-tags and
//     every published version with its dependencies
//   - GET <registry>/<name>/-/<basename>-<version>.tgz returns a tarball
//
// # Usage
//
//	http := integrations.NewClient(integrations.Options{Concurrency: 8})
//	client := npm.NewClient(http, "https://registry.yarnpkg.com")
//
//	info, err := client.FetchPackageInfo(ctx, "express")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(info.DistTags["latest"])
//
// # Memoization
//
// Package documents are memoized for the lifetime of a [Client]. Concurrent
// requests for the same name share a single HTTP request. Failures are not
// memoized. Create one Client per install run so that metadata never
// outlives the run.
package npm
