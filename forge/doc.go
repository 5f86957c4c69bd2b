// Package forge abstracts source-forge services (GitHub and GitLab) behind a
// single Session type for automated repository maintenance.
//
// This package includes:
//   - Issue operations (lookup by title, idempotent open/close, assignment)
//   - Pull/merge request operations (creation with labels, listing)
//   - Branch operations (listing, deletion)
//   - GitHub App authentication: a signed app JWT is exchanged for a
//     short-lived installation access token, which is cached per session and
//     transparently refreshed before any forge call once its deadline passes
//
// Sessions are not safe for concurrent use; the token check-and-refresh is
// not atomic.
package forge
