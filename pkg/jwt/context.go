package jwt

import "context"

type contextKey struct{ name string }

var (
	subjectKey = contextKey{"jwt-subject"}
	claimsKey  = contextKey{"jwt-claims"}
)

// SetSubject stores the authenticated subject in the context.
func SetSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext retrieves the authenticated subject from the context.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}

// SetClaims stores the parsed token claims in the context.
func SetClaims(ctx context.Context, claims StandardClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the parsed token claims from the context.
func ClaimsFromContext(ctx context.Context) (StandardClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(StandardClaims)
	return claims, ok
}
