// Package preflight provides readiness checks for the node RPC interface
// and filesystem paths the pool depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup. If a required check fails,
//     startup aborts before the accounting engine touches the database.
//   - The CLI "coldstakepool status" command uses individual check
//     functions (CheckNodeRPC, CheckDirectoryAccess) to display health.
package preflight
