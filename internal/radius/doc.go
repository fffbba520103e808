// Package radius implements the wire format of RFC 2865 (Authentication),
// RFC 2866 (Accounting) and RFC 5176 (Change of Authorization / Disconnect):
// a textual attribute dictionary, the password obfuscation primitives used
// by User-Password and Tunnel-Password, and the packet codec that ties the
// two together into request/response datagrams.
//
// The package does not open sockets; internal/client and internal/server
// build on top of it to speak RADIUS over UDP.
package radius
