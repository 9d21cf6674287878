// Package wasmhost exposes a resolver to WebAssembly guests as the "libfs"
// host module.
//
// Every function takes a UTF-8 path as a (pointer, length) pair into the
// guest's exported memory and returns an i32:
//
//	 1  the answer is yes
//	 0  the answer is no
//	-1  the path is invalid or lies outside guest memory
//	-2  the answer could not be determined
package wasmhost

import (
	"context"
	"errors"
	"fmt"
	"io"

	"libfs/internal/fs"
	"libfs/internal/logging"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

var (
	logger = logging.GetLogger().WithPrefix("wasm")
)

// ModuleName is the import module name guests use
const ModuleName = "libfs"

// Result codes returned to the guest
const (
	ResultTrue        int32 = 1
	ResultFalse       int32 = 0
	ResultInvalidPath int32 = -1
	ResultIOError     int32 = -2
)

var pathParams = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
var resultTypes = []api.ValueType{api.ValueTypeI32}

// hostFunc answers a single yes/no question about a path
type hostFunc func(raw string) (bool, error)

// Instantiate registers the libfs host module in runtime. It must be
// called before instantiating guests that import it.
func Instantiate(ctx context.Context, runtime wazero.Runtime, resolver *fs.Resolver) (api.Module, error) {
	funcs := map[string]hostFunc{
		"fs_exist":        resolver.Exists,
		"fs_is_directory": resolver.IsDirectory,
		"fs_is_file":      resolver.IsFile,
		"fs_is_symlink":   resolver.IsSymlink,
	}

	builder := runtime.NewHostModuleBuilder(ModuleName)
	for name, fn := range funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(pathHandler(name, fn), pathParams, resultTypes).
			WithParameterNames("path_ptr", "path_len").
			Export(name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s host module: %w", ModuleName, err)
	}
	logger.Debug("Instantiated host module %q with %d functions", ModuleName, len(funcs))
	return mod, nil
}

func pathHandler(name string, fn hostFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		ptr := api.DecodeU32(stack[0])
		size := api.DecodeU32(stack[1])

		stack[0] = api.EncodeI32(call(name, fn, mod, ptr, size))
	}
}

func call(name string, fn hostFunc, mod api.Module, ptr, size uint32) int32 {
	mem := mod.Memory()
	if mem == nil {
		logger.Warn("%s: calling module %q exports no memory", name, mod.Name())
		return ResultInvalidPath
	}
	buf, ok := mem.Read(ptr, size)
	if !ok {
		logger.Warn("%s: path range [%d, %d) outside guest memory", name, ptr, uint64(ptr)+uint64(size))
		return ResultInvalidPath
	}

	// copy out of guest memory before the resolver sees it
	raw := string(buf)
	answer, err := fn(raw)
	switch {
	case errors.Is(err, fs.ErrInvalidPath):
		logger.Debug("%s(%q): invalid path", name, raw)
		return ResultInvalidPath
	case err != nil:
		logger.Warn("%s(%q) failed: %v", name, raw, err)
		return ResultIOError
	case answer:
		return ResultTrue
	default:
		return ResultFalse
	}
}

// RunConfig configures Run
type RunConfig struct {
	Name   string   // module name, defaults to "guest"
	Args   []string // argv, including argv[0]
	Stdout io.Writer
	Stderr io.Writer
}

// Run compiles and runs a WASI command module with the libfs host module
// available. It returns the guest's exit code.
func Run(ctx context.Context, wasm []byte, resolver *fs.Resolver, cfg RunConfig) (uint32, error) {
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return 0, fmt.Errorf("instantiate wasi: %w", err)
	}
	if _, err := Instantiate(ctx, runtime, resolver); err != nil {
		return 0, err
	}

	name := cfg.Name
	if name == "" {
		name = "guest"
	}
	modCfg := wazero.NewModuleConfig().WithName(name).WithArgs(cfg.Args...)
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}

	logger.Info("Running guest %q", name)
	mod, err := runtime.InstantiateWithConfig(ctx, wasm, modCfg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			logger.Debug("Guest %q exited with code %d", name, exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("run guest %q: %w", name, err)
	}
	// a guest that calls proc_exit(0) comes back closed and nil
	if mod == nil {
		return 0, nil
	}
	return 0, mod.Close(ctx)
}
