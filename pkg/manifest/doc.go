// Package manifest parses package.json documents.
//
// Only the fields the installer consumes are decoded: name, version,
// dependencies, devDependencies, bin and scripts. The "bin" field is a
// tagged value in package.json: a string names a single executable called
// after the package (without its scope), an object maps executable names to
// script paths. [Manifest.Bin] always holds the normalized map form.
package manifest
