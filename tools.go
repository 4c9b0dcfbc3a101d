//go:build tools

package tools

// Development tools, pinned through go.mod:
//
//	golangci-lint, staticcheck, gocyclo  linting
//	gotestsum                            test runs
//	govulncheck                          dependency audit
//	goimports                            formatting
//	mockery                              mock generation
//	goreleaser                           release builds of cmd prophet
import (
	_ "github.com/fzipp/gocyclo/cmd/gocyclo"
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "github.com/goreleaser/goreleaser"
	_ "github.com/vektra/mockery/v2"
	_ "golang.org/x/tools/cmd/goimports"
	_ "golang.org/x/vuln/cmd/govulncheck"
	_ "gotest.tools/gotestsum"
	_ "honnef.co/go/tools/cmd/staticcheck"
)
