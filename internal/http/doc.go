// Package http provides HTTP handlers and middleware for the space
// reservation API.
//
// The router exposes the following endpoints. Everything except POST /login
// requires a bearer token issued by the login endpoint; the verified
// principal's role decides what each endpoint allows.
//
//   - POST /login: exchanges {"email","password"} for a signed token and its
//     expiry. Throttled per client address.
//   - GET /spaces, POST /spaces, GET/PUT/DELETE /spaces/{id}: space catalog
//     endpoints exchanging the `spaceDTO` payload defined in space_handler.go.
//     Listing and lookup are open to any authenticated principal, mutations
//     require the administrator role.
//   - POST /spaces/availability: answers which spaces have no approved
//     reservation overlapping the requested window on the requested date.
//   - GET /spaces/{id}/reservations: lists a space's reservations, optionally
//     bounded with from/to dates and grouped with period=day|week|month.
//   - GET /users, POST /users, GET/PUT/DELETE /users/{id}: administrator
//     controlled account management exchanging the `userDTO` payload defined
//     in user_handler.go.
//   - GET /users/{id}/reservations: lists a user's reservations, visible to
//     the owner, coordinators and administrators.
//   - POST /reservations: submits a pending reservation request after the
//     guard checks; GET /reservations lists all (coordinator, administrator).
//   - GET /reservations/{id}, DELETE /reservations/{id}: lookup and deletion
//     of a still-pending reservation.
//   - POST /reservations/{id}/approve: approves a pending reservation and
//     auto-rejects every overlapping pending peer; the response reports the
//     displaced reservations. POST /reservations/{id}/reject rejects without
//     a cascade. Both require coordinator or administrator.
//   - POST /reservations/search: administrator filter over user, space kind,
//     status and date range.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
