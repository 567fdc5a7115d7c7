package main

import "adventcal/cli"

// @title           Advent Calendar API
// @version         1.0.0

// @description     ## Advent Calendar API
// @description
// @description     Build a 24-door advent calendar for someone, fill each door with a message or a picture, and give it to them. The recipient opens one door per day in December.
// @description
// @description     **Identity:**
// @description     Every user is anonymous. `POST /auth/anonymous` creates a user and returns a bearer token plus a refresh secret. Keep the secret: `POST /auth/refresh` exchanges it for a new token when the old one expires.
// @description
// @description     **Access rules:**
// @description     *   The creator of a calendar sees and edits all of its doors.
// @description     *   A recipient sees the calendar with the content of unopened doors hidden, and may open door `n` from December `n` onwards.
// @description     *   Anyone else gets `403 Forbidden`.
// @description
// @description     **Content Querying (`content_query` parameter):**
// @description     `GET /calendars` filters calendars by their fields. Each condition is `path operator value`, and conditions alternate with `and` / `or` parts.
// @description     *   **`path`**: A dot-separated path into the calendar JSON, e.g. `recipientName`, `doors.0.contentType`, `doors.#.contentType` (arrays support `contains` only).
// @description     *   **`operator`**: `equals`, `notequals`, `greaterthan`, `greaterthanorequals`, `lessthan`, `lessthanorequals`, `contains`, `startswith`, `endswith`. Append `-insensitive` to the string operators to ignore case.
// @description     *   **`value`**: Numbers, booleans and `null` as-is; strings may be quoted.
// @description
// @description     Example: `?content_query=recipientName equals Ada&content_query=or&content_query=recipientInterest contains stars`

// @license.name  MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.jwt BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cli.Execute()
}
