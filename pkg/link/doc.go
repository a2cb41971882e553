// Package link installs a resolved dependency tree onto disk.
//
// # Layout
//
// Each child of a node is installed at <dir>/node_modules/<name>, where dir
// is the parent's install directory (the project directory for the root's
// children). Executables declared in a package's "bin" field are symlinked
// from <dir>/node_modules/.bin, shared by all packages of that level.
//
// # Per-package steps
//
//  1. If the install directory exists, the package counts as installed and
//     only its children are visited.
//  2. The archive is fetched and extracted with its wrapper directory
//     stripped.
//  3. Bin entries are linked with relative symlinks and their targets made
//     executable. An existing link is left alone.
//  4. The preinstall, install and postinstall scripts run in that order
//     through "sh -c", inside the install directory, with the package's own
//     .bin directory and the shared one prepended to PATH.
//  5. Children are linked below the install directory.
//
// Siblings are linked concurrently. The first failure is returned; work
// already done is not rolled back.
package link
