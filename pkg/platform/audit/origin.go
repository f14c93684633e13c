package audit

import (
	"context"
	"fmt"

	"github.com/mssola/useragent"

	"passtrack/pkg/requestcontext"
)

// OriginFromContext builds the request origin stamped on audit entries from
// the client metadata middleware's context values.
func OriginFromContext(ctx context.Context) Origin {
	raw := requestcontext.UserAgent(ctx)
	return Origin{
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: raw,
		Client:    summarizeUserAgent(raw),
	}
}

// summarizeUserAgent normalizes a raw User-Agent into "Browser x.y on OS".
// Unparseable agents (curl, SDK clients) keep an empty summary; the raw
// string is always preserved on the entry.
func summarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s on %s", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}
