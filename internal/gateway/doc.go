// Package gateway is the single path for outbound HTTP in smashtrack.
//
// Every call to the backend API, and to the generative provider when the
// client talks to it directly, goes through Client.Do. The client:
//
//   - attaches "Authorization: Bearer <token>" when a credential is present
//     and the path is on the protected surface (matched by prefix)
//   - clears the credential exactly once when the backend answers 401, then
//     returns the original failure; it never retries and never navigates
//   - turns transport failures into ErrNetwork without touching state
//   - classifies HTTP failures into ErrUnauthorized, ErrValidation,
//     ErrOverloaded and ErrServer, keeping the server's detail verbatim
//   - stamps each request with an X-Request-ID and throttles with a token
//     bucket
//
// Callers inspect failures with errors.Is against the sentinels, or KindOf.
package gateway
