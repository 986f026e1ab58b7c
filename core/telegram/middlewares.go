package telegram

import (
	"github.com/avelune/xmrbridge/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
// The limiter is injected by the caller; passing nil disables rate limiting.
func DefaultMiddlewares(limiter middleware.MessageLimiter, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}

	if limiter != nil {
		opts := middleware.RateLimitOptions{Limiter: limiter}
		if onLimited != nil {
			opts.OnLimited = onLimited
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use:  middleware.RateLimitMiddleware(opts),
		})
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)

	return mws
}
