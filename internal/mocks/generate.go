// Package mocks provides mock implementations for testing the session manager.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the session ports.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockKeyValueStore(ctrl)
//	store.EXPECT().GetItem(gomock.Any(), "@app:user").Return("", false, nil)
package mocks

// Generate mocks for every interface in internal/ports:
// AuthProvider, BrowserSession, TokenExchanger, KeyValueStore, SessionMetrics
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/target/ghsession/internal/ports AuthProvider,BrowserSession,TokenExchanger,KeyValueStore,SessionMetrics
