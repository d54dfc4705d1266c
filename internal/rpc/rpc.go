// Package rpc is the stdio JSON-RPC 2.0 surface named in §6: method
// signatures, with ExecProgram wired to the driver as the one method
// with enough of the pipeline behind it to be worth implementing; the rest are interface-level stubs per §1's
// Non-goals ("RPC/LSP server loops... get interface-level stubs") —
// the full JSON-RPC2 framing loop (request/notification routing,
// batch requests, method dispatch tables) is not specified.
package rpc

import (
	"context"
	"fmt"

	"github.com/kcl-lang/compiler/internal/driver"
	"github.com/kcl-lang/compiler/internal/value"
)

// appErrorCode is the application error code every RPC error response
// carries (§6: "errors use an application code (ASCII literal \"KCL\")").
const appErrorCode = "KCL"

// Error is an RPC-level error response.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("[%s] %s", e.Code, e.Message) }

func newError(format string, args ...interface{}) *Error {
	return &Error{Code: appErrorCode, Message: fmt.Sprintf(format, args...)}
}

// ExecArgs is KclService.ExecProgram's request shape (§6).
type ExecArgs struct {
	WorkDir     string
	KFilenames  []string
	Args        map[string]string // -D pkg_map / overrides, flattened
	PackageMaps map[string]string
}

// ExecResult is KclService.ExecProgram's response shape (§6).
type ExecResult struct {
	JSONResult string
	YAMLResult string
	LogMessage string
	ErrMessage string
}

// KclService implements the KclService.* RPC methods.
type KclService struct {
	CacheRoot string
}

// Ping is a liveness probe; it always succeeds.
func (s *KclService) Ping() (string, error) { return "pong", nil }

// ExecProgram compiles and evaluates the given KCL files via the build
// driver, catching panics from the pipeline and returning them as error
// responses rather than crashing the RPC process (§6).
func (s *KclService) ExecProgram(ctx context.Context, args ExecArgs) (res *ExecResult, rpcErr error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			rpcErr = newError("panic in ExecProgram: %v", r)
		}
	}()

	if len(args.KFilenames) == 0 {
		return nil, newError("ExecProgram: no input files")
	}

	d := driver.New(s.CacheRoot, "exec")
	g, entryPkg, err := d.LoadEntry(args.KFilenames, []string{args.WorkDir})
	if err != nil {
		return nil, newError("load: %s", err)
	}
	results, err := d.Build(ctx, g, entryPkg)
	if d.Handler.HasErrors() {
		var msgs []string
		for _, diagm := range d.Handler.Diagnostics() {
			for _, m := range diagm.Messages {
				msgs = append(msgs, m.Text)
			}
		}
		return &ExecResult{ErrMessage: fmt.Sprintf("%v", msgs)}, nil
	}
	if err != nil {
		return nil, newError("build: %s", err)
	}

	out := results[entryPkg].Output
	if out == nil {
		out = value.NewDictValue()
	}
	j, err := value.ToJSONString(out, value.EncodeOpts{Indent: 2, SortKeys: true})
	if err != nil {
		return nil, newError("encode json: %s", err)
	}
	y, err := value.ToYAMLString(out, value.EncodeOpts{})
	if err != nil {
		return nil, newError("encode yaml: %s", err)
	}
	return &ExecResult{JSONResult: j, YAMLResult: y}, nil
}

// ParseProgram, FormatCode and ValidateCode are interface-level stubs:
// their semantics live in the fmt/vet CLI commands (cmd/kcl), which the
// RPC surface is not specified to reuse directly (§1 Non-goals).
func (s *KclService) ParseProgram(ctx context.Context, args ExecArgs) (interface{}, error) {
	return nil, newError("ParseProgram: not implemented")
}

func (s *KclService) FormatCode(ctx context.Context, src string) (string, error) {
	return "", newError("FormatCode: not implemented")
}

func (s *KclService) ValidateCode(ctx context.Context, dataFile, kclFile string) (bool, error) {
	return false, newError("ValidateCode: not implemented")
}

// BuiltinService implements the BuiltinService.* RPC methods.
type BuiltinService struct{}

func (s *BuiltinService) Ping() (string, error) { return "pong", nil }

// ListMethod enumerates the methods this process exposes, for client
// discovery.
func (s *BuiltinService) ListMethod() ([]string, error) {
	return []string{
		"KclService.Ping",
		"KclService.ExecProgram",
		"KclService.ParseProgram",
		"KclService.FormatCode",
		"KclService.ValidateCode",
		"BuiltinService.Ping",
		"BuiltinService.ListMethod",
	}, nil
}
