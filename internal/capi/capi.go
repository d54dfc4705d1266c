// Package capi is the C ABI embedding surface named in §6:
// kcl_malloc/kcl_free/kcl_exec_program plus result getters and
// kcl_free_exec_program_result. Real cgo export annotations
// (//export kcl_malloc etc.) require a `import "C"` cgo build this
// module does not carry (§1 Non-goals: the plugin-host/embedding
// bindings are interface-level only), so this package gives the Go-side
// shape of the contract — the same ExecResult the RPC surface returns,
// in callee-owned string buffers — without the actual cgo export
// machinery.
package capi

import (
	"context"
	"unsafe"

	"github.com/kcl-lang/compiler/internal/rpc"
)

// ExecProgramResult mirrors the C struct a real kcl_exec_program would
// return: four NUL-terminated UTF-8 buffers, owned by the callee until
// kcl_free_exec_program_result runs (§6: "buffers are owned by the
// callee until freed").
type ExecProgramResult struct {
	JSONResult string
	YAMLResult string
	LogMessage string
	ErrMessage string

	freed bool
}

// KclMalloc allocates size bytes; the real C ABI exposes this as
// kcl_malloc(size) so host languages can hand the compiler pre-sized
// buffers. Go callers within this module never need it directly (Go's
// own allocator already serves internal/driver and internal/eval), so
// it exists purely to complete the ABI surface named in §6.
func KclMalloc(size int) unsafe.Pointer {
	buf := make([]byte, size)
	return unsafe.Pointer(&buf[0])
}

// KclFree is the corresponding no-op release on the Go side; the real
// cgo boundary would call C.free, but Go-allocated memory here is
// reclaimed by the garbage collector once unreferenced.
func KclFree(ptr unsafe.Pointer, size int) {}

// KclExecProgram runs the given KCL files and returns a *ExecProgramResult,
// the Go-side equivalent of kcl_exec_program(filename, src) -> ExecResult*.
func KclExecProgram(filename, workDir, cacheRoot string) (*ExecProgramResult, error) {
	svc := &rpc.KclService{CacheRoot: cacheRoot}
	res, err := svc.ExecProgram(context.Background(), rpc.ExecArgs{
		WorkDir:    workDir,
		KFilenames: []string{filename},
	})
	if err != nil {
		return &ExecProgramResult{ErrMessage: err.Error()}, nil
	}
	return &ExecProgramResult{
		JSONResult: res.JSONResult,
		YAMLResult: res.YAMLResult,
		LogMessage: res.LogMessage,
		ErrMessage: res.ErrMessage,
	}, nil
}

// KclResultGetJSONResult, …GetYAMLResult, …GetLogResult, …GetErrResult
// are the getXxx accessors named in §6 (kcl_result_get_{json,yaml,log,err}_result).
func KclResultGetJSONResult(r *ExecProgramResult) string { return r.JSONResult }
func KclResultGetYAMLResult(r *ExecProgramResult) string { return r.YAMLResult }
func KclResultGetLogResult(r *ExecProgramResult) string  { return r.LogMessage }
func KclResultGetErrResult(r *ExecProgramResult) string  { return r.ErrMessage }

// KclFreeExecProgramResult marks r as freed; subsequent getter calls on
// a freed result are a caller error in the real ABI (double-free/use-
// after-free), mirrored here by a best-effort flag rather than actually
// reclaiming Go-managed memory.
func KclFreeExecProgramResult(r *ExecProgramResult) {
	if r != nil {
		r.freed = true
	}
}
