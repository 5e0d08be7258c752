package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for mingle.
// It includes standard claims required by the JWT specification and custom claims
// necessary for identifying and authorizing persons within the application.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the numeric identifier of the authenticated person. Room identifiers
	// for direct conversations are derived from pairs of these IDs, so the type
	// matches the persons table primary key.
	ID int64 `json:"id"`

	// Username is the unique handle of the authenticated person, carried in the
	// token so profile lookups by username avoid an extra round-trip.
	Username string `json:"username"`
}
