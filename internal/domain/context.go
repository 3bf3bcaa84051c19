package domain

type ctxKey string

// WalletCtxKey carries the authenticated wallet address through a request
// context. Empty when the caller sent no identity.
const WalletCtxKey ctxKey = "wallet"
