// Sends administrative commands to a running server over its remote
// console (the Source RCON protocol spoken by Minecraft servers).
//
// Every call dials, authenticates, runs one command and closes. Dial and
// read deadlines are bounded by the dialer's timeout.
package rcon
