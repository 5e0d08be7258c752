/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Person, Profile, and Follow Business Logic Errors
	ErrPersonNotFound:    {Code: ErrPersonNotFound, Message: "Person not found.", Status: http.StatusNotFound},
	ErrUsernameTaken:     {Code: ErrUsernameTaken, Message: "Username is already taken.", Status: http.StatusConflict},
	ErrInvalidPersonData: {Code: ErrInvalidPersonData, Message: "Invalid profile data.", Status: http.StatusBadRequest},
	ErrSearchTooShort:    {Code: ErrSearchTooShort, Message: "Search query must be at least %d characters long.", Status: http.StatusBadRequest},
	ErrAlreadyFollowing:  {Code: ErrAlreadyFollowing, Message: "You are already following this person.", Status: http.StatusConflict},
	ErrNotFollowing:      {Code: ErrNotFollowing, Message: "You are not following this person.", Status: http.StatusConflict},
	ErrSelfFollow:        {Code: ErrSelfFollow, Message: "You cannot follow yourself.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:  {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:   {Code: ErrFileTypeInvalid, Message: "File type is not allowed.", Status: http.StatusBadRequest},

	// 3xxx: Message and Room Business Logic Errors
	ErrMessageNotFound:  {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},
	ErrMessageTextEmpty: {Code: ErrMessageTextEmpty, Message: "Message text must not be empty.", Status: http.StatusBadRequest},
	ErrMessageTooLong:   {Code: ErrMessageTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrNotMessageOwner:  {Code: ErrNotMessageOwner, Message: "You can only modify your own messages.", Status: http.StatusForbidden},
	ErrRoomAccessDenied: {Code: ErrRoomAccessDenied, Message: "You are not a participant of this conversation.", Status: http.StatusForbidden},
	ErrRoomInvalid:      {Code: ErrRoomInvalid, Message: "Invalid conversation identifier.", Status: http.StatusBadRequest},

	// 4xxx: Authentication and Security Errors
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Password must be at least 6 characters long.", Status: http.StatusBadRequest},
	ErrAlreadyLoggedIn:      {Code: ErrAlreadyLoggedIn, Message: "You are already signed in.", Status: http.StatusBadRequest},
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again.", Status: http.StatusForbidden},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusInternalServerError},
}
