package handler

import (
	"mingle/internal/app/chat"
	"mingle/internal/app/storage"
	"mingle/internal/app/store"
	"mingle/internal/configs"
	"mingle/internal/pkg/pow"
)

// AppDeps bundles the shared dependencies injected into every handler.
// The registry is an ordinary field rather than a package-level singleton so
// tests can run isolated instances side by side.
type AppDeps struct {
	Registry       *chat.Registry
	Config         *configs.AppConfig
	StorageService storage.StorageService
	Persons        store.PersonStore
	Messages       store.MessageStore
	Pow            *pow.Manager
}
