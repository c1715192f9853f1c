// Package source resolves caller input into ordered rule source artifacts.
//
// Two pieces live here:
//   - Registry classifies a file into an ir.ResourceKind, from an explicit
//     tag or from its extension. The process-wide registry is built once
//     (see Default) and is closed for the lifetime of a session.
//   - Locator loads sources either from an explicit, caller-ordered file
//     list or by walking a root directory. Walk results are sorted by full
//     path so output ordering never depends on filesystem enumeration.
package source
