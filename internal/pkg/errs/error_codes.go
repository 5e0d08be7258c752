/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Person, Profile, and Follow Business Logic Errors
const (
	// ErrPersonNotFound indicates that the requested person does not exist.
	ErrPersonNotFound = 2101

	// ErrUsernameTaken indicates that the desired username is already registered.
	ErrUsernameTaken = 2102

	// ErrInvalidPersonData indicates that required profile fields are missing or malformed.
	ErrInvalidPersonData = 2103

	// ErrSearchTooShort indicates that the search query is below the minimum length.
	ErrSearchTooShort = 2104

	// ErrAlreadyFollowing indicates that the caller already follows the target person.
	ErrAlreadyFollowing = 2105

	// ErrNotFollowing indicates that the caller does not follow the target person.
	ErrNotFollowing = 2106

	// ErrSelfFollow indicates an attempt to follow one's own account.
	ErrSelfFollow = 2107

	// ErrFileSizeTooLarge indicates that the uploaded avatar exceeds the size limit.
	ErrFileSizeTooLarge = 2201

	// ErrFileTypeInvalid indicates that the uploaded avatar has a disallowed type.
	ErrFileTypeInvalid = 2202
)

// 3xxx: Message and Room Business Logic Errors
const (
	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = 3101

	// ErrMessageTextEmpty indicates that the message text is empty after trimming.
	ErrMessageTextEmpty = 3102

	// ErrMessageTooLong indicates that the message text exceeded the maximum length.
	ErrMessageTooLong = 3103

	// ErrNotMessageOwner indicates an edit or delete attempt on a message the caller does not own.
	ErrNotMessageOwner = 3104

	// ErrRoomAccessDenied indicates a join attempt on a room the caller is not a participant of.
	ErrRoomAccessDenied = 3105

	// ErrRoomInvalid indicates a malformed room identifier.
	ErrRoomInvalid = 3106
)

// 4xxx: Authentication and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 4001

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = 4002

	// ErrInvalidPassword indicates that the supplied password does not meet requirements.
	ErrInvalidPassword = 4003

	// ErrAlreadyLoggedIn indicates a register/login attempt from an authenticated session.
	ErrAlreadyLoggedIn = 4004

	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 4005

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid.
	ErrPowChallengeInvalid = 4006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates a failure talking to the S3 storage backend.
	ErrFileStorageFailed = 5001
)
