// Provides platform-appropriate paths for the daemon and its client.
//
// Configuration and runtime paths follow XDG conventions on Linux and
// platform-native conventions on macOS. The name "ownmine" is used as the
// subdirectory under each base path. The control socket lives at a fixed
// well-known path instead.
package paths
