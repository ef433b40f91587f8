// Package authclient is the client side session and role based access layer:
// it decodes bearer tokens, owns the session and its durable mirror, resolves
// roles, guards routes and builds role scoped navigation.
//
// Session lifecycle:
//   - SessionStore is the only owner of the Session value and of the token,
//     user and roleId storage keys. Restore runs once at bootstrap and Logout
//     is the only teardown path. Keys owned by the rest of the application,
//     such as a persisted cart, are never touched.
//   - Login awaits the optional RoleLookup before anything is written, so a
//     session is never committed with a role still being resolved.
//
// Authorization:
//   - RouteGuard runs Unchecked, Checking and one terminal state per
//     navigation attempt. It waits for Restore, re-validates the session and
//     returns Allowed, RedirectLogin or RedirectUnauthorized. Route specific
//     behavior, like the sponsor registration flow, is Policy data.
//   - Unrecognized role claims resolve to RoleUnknown, which gets the student
//     landing page and menu and is a member of no policy.
//
// Activity sinks:
//   - ActivitySink receives login, logout, expiry and route denial events.
//     Sinks run best-effort (errors are logged).
package authclient
