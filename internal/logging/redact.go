package logging

import "regexp"

var (
	bearerTokenPattern  = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`)
	oauthTokenPattern   = regexp.MustCompile(`(access_token|refresh_token|id_token)["']?\s*[:=]\s*["']?[A-Za-z0-9\-._~+/]+=*`)
	authHeaderPattern   = regexp.MustCompile(`(?i)authorization["']?\s*[:=]\s*["']?[^\s"']+`)
	privateKeyPattern   = regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)
	resourceKeysPattern = regexp.MustCompile(`(?i)(x-goog-drive-resource-keys)["']?\s*[:=]\s*["']?[^\s"']+`)
)

// redactSensitiveData masks bearer tokens, OAuth tokens, service account
// private keys and Drive resource keys
func redactSensitiveData(s string) string {
	s = bearerTokenPattern.ReplaceAllString(s, "Bearer [REDACTED]")
	s = oauthTokenPattern.ReplaceAllString(s, "$1=[REDACTED]")
	s = authHeaderPattern.ReplaceAllString(s, "Authorization: [REDACTED]")
	s = privateKeyPattern.ReplaceAllString(s, "[REDACTED PRIVATE KEY]")
	s = resourceKeysPattern.ReplaceAllString(s, "$1=[REDACTED]")
	return s
}
