// Package mocks groups the test doubles for the ports.
//
// Hand-written fakes live in the auth subpackage next to gomock-generated
// mocks (go.uber.org/mock). Regenerate the generated ones after interface
// changes with:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	nav := auth.NewMockNavigator(ctrl)
//	nav.EXPECT().Replace(gomock.Any()).Return(nil)
package mocks

// MockNavigator covers Navigator: CurrentRoute, Replace
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=auth -destination=auth/navigator_mock.go github.com/purumi/purumi/internal/ports Navigator
