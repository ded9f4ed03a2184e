// Package config loads and persists the daemon configuration.
//
// A configuration file holds a top-level execution-mode flag, the daemon log
// settings and a mapping of server name to server definition. Server names
// keep the order in which they are declared in the file. The file is YAML;
// JSON files written by earlier releases parse unchanged.
//
// Secret fields (remote-console and share passwords) are stored sealed by the
// secret package. [Store.Load] opens every sealed field and [Store.Save]
// seals every field that is not already ciphertext, so a loaded [Config]
// always carries plaintext in memory and the file never does once saved.
//
// The store keeps the verbatim bytes of the last successful load. If a save
// fails partway, those bytes are written back so the file on disk is never
// left truncated or half written.
package config
