package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/memoryvault/vault"
	"github.com/memoryvault/vault/internal/domain"
)

var tracer = otel.Tracer("auth")

// WalletHeader carries the caller's wallet address. The address is only
// parsed for shape here; possession of the matching key is proven by the
// ability to unwrap grants, not by anything transport level.
const WalletHeader = "X-Wallet-Address"

type AuthMiddleware struct{}

func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{}
}

func (s *AuthMiddleware) IdentifyWallet(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.IdentifyWallet")
		defer span.End()

		header := c.Request().Header.Get(WalletHeader)
		if header != "" {
			identity, err := vault.ParseIdentity(header)
			if err != nil {
				span.RecordError(errors.Wrap(err, "invalid wallet address header"))
			} else {
				ctx = context.WithValue(ctx, domain.WalletCtxKey, identity.String())
				span.SetAttributes(attribute.String("Wallet", identity.String()))
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// WalletFromContext returns the authenticated wallet address, if any.
func WalletFromContext(ctx context.Context) string {
	wallet, _ := ctx.Value(domain.WalletCtxKey).(string)
	return wallet
}
