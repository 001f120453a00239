package apperrors

import (
	"net/http"
)

// Factories for the catalog domain. The HTTP mapping follows the API contract:
// missing records are 404, duplicate-name conflicts are rejected as 400
// alongside validation failures.

// ErrSubscriptionNotFound converts a repository miss into a 404.
func ErrSubscriptionNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "subscription", "Subscription not found", http.StatusNotFound)
}

// ErrSubscriptionExists rejects a create or rename that collides with an
// existing name, active or inactive.
func ErrSubscriptionExists(name string) *AppError {
	return New(CodeConflict, "subscription", "Subscription with this name already exists", http.StatusBadRequest).
		WithDetails(map[string]string{"name": name})
}

// ErrInsufficientPermissions is returned when a non-admin reaches an
// admin-only operation.
var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)
