// Package loader reads dialog definitions from YAML files.
//
// Definitions are data: a file declares one dialog with its begin steps and
// rules, and a directory of files makes up a bot. The loader validates
// definitions on parse, loads whole directories, and can watch a directory
// for changes and hot-swap the registry, so running conversations pick up
// edited dialogs on their next turn.
package loader
