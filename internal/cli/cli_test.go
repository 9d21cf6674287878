package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"libfs/internal/config"
	"libfs/internal/fs"
	"libfs/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdata = "../fs/testdata"

func resetFlags(t *testing.T) {
	t.Helper()
	globalFlags.config = ""
	globalFlags.mounts = nil
	globalFlags.root = ""
	globalFlags.verbose = false
	existsFlags.kind = false
	t.Setenv(config.EnvConfigPath, "")
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(t)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		logging.GetLogger().SetOutput(os.Stderr)
		logging.GetLogger().SetLevel(logging.LevelInfo)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseMountFlag(t *testing.T) {
	tests := []struct {
		value      string
		wantPrefix string
		wantDir    string
		wantErr    bool
	}{
		{value: "/working=./data", wantPrefix: "/working", wantDir: "./data"},
		{value: "/a=b=c", wantPrefix: "/a", wantDir: "b=c"},
		{value: "/working", wantErr: true},
		{value: "=./data", wantErr: true},
		{value: "/working=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			prefix, dir, err := parseMountFlag(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUsage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantDir, dir)
		})
	}
}

func TestExistsCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "exists",
		"--mount", "/working="+testdata,
		"/working/hello.txt", "/working/missing.txt", `\working\sub`)
	require.NoError(t, err)

	assert.Equal(t, "/working/hello.txt\ttrue\n/working/missing.txt\tfalse\n\\working\\sub\ttrue\n", stdout)
}

func TestExistsCommand_StdoutCarriesOnlyResults(t *testing.T) {
	stdout, stderr, err := executeCommand(t, "exists", "--verbose",
		"--mount", "/working="+testdata,
		"/working/hello.txt", "/working/missing.txt")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 2, stdout)
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 2, line)
		assert.Contains(t, []string{"true", "false"}, fields[1], line)
	}

	// mount and resolver logging goes to stderr
	assert.Contains(t, stderr, "Mounted")
}

func TestExistsCommand_Kind(t *testing.T) {
	stdout, _, err := executeCommand(t, "exists", "--kind",
		"--mount", "/working="+testdata,
		"/working/hello.txt", "/working/sub", "/working/nope")
	require.NoError(t, err)

	assert.Equal(t, "/working/hello.txt\tfile\n/working/sub\tdirectory\n/working/nope\tnone\n", stdout)
}

func TestExistsCommand_ReportsErrors(t *testing.T) {
	stdout, stderr, err := executeCommand(t, "exists", "--mount", "/working="+testdata, "/working/hello.txt", "")
	require.Error(t, err)

	assert.Equal(t, ExitGeneralError, ExitCodeForError(err))
	assert.Equal(t, "/working/hello.txt\ttrue\n", stdout, "failed checks are never printed as false")
	assert.Contains(t, stderr, "invalid path")
	assert.Contains(t, err.Error(), "1 of 2 checks failed")
}

func TestExistsCommand_RequiresArgs(t *testing.T) {
	_, _, err := executeCommand(t, "exists")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCodeForError(err))
}

func TestExistsCommand_BadMountFlag(t *testing.T) {
	_, _, err := executeCommand(t, "exists", "--mount", "/working", "/working/hello.txt")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, ExitCodeForError(err))
}

func TestExistsCommand_DuplicateMount(t *testing.T) {
	_, _, err := executeCommand(t, "exists",
		"--mount", "/working="+testdata,
		"--mount", "/working/="+testdata,
		"/working/hello.txt")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))
}

func TestMountCommand_RequiresMountPoint(t *testing.T) {
	for _, args := range [][]string{{"mount"}, {"mount", "/a", "/b"}} {
		_, _, err := executeCommand(t, args...)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUsage)
		assert.Equal(t, ExitUsageError, ExitCodeForError(err))
	}
}

func TestMountsCommand(t *testing.T) {
	abs, err := filepath.Abs(testdata)
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "mounts", "--mount", "/working="+testdata, "--mount", "/working/sub="+testdata)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"PREFIX", "PROVIDER"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"/working", "mirror:" + abs}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"/working/sub", "mirror:" + abs}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"/", "native", "(root)"}, strings.Fields(lines[3]))
}

func TestMountsCommand_RootMirror(t *testing.T) {
	stdout, _, err := executeCommand(t, "mounts", "--root", testdata)
	require.NoError(t, err)
	assert.Contains(t, stdout, "mirror:")
	assert.Contains(t, stdout, "(root)")
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "a.txt"), nil, 0644))

	path := filepath.Join(dir, "libfs.yaml")
	content := "mounts:\n  - prefix: /working\n    type: mirror\n    source: data\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv(config.EnvConfigPath, path)

	// command line mounts are added after the file's
	globalFlags.mounts = []string{"/extra=" + testdata}

	resolver, err := loadResolver()
	require.NoError(t, err)

	mounts := resolver.Table().Mounts()
	require.Len(t, mounts, 2)
	assert.Equal(t, "/working", mounts[0].Prefix.String())
	assert.Equal(t, "/extra", mounts[1].Prefix.String())

	exists, err := resolver.Exists("/working/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadConfig_FlagWinsOverEnvironment(t *testing.T) {
	resetFlags(t)
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "ignored.yaml"))

	path := filepath.Join(t.TempDir(), "libfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root:\n  type: memory\n"), 0644))
	globalFlags.config = path

	resolver, err := loadResolver()
	require.NoError(t, err)
	_, ok := resolver.RootProvider().(*fs.MemoryProvider)
	assert.True(t, ok)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, _, err := executeCommand(t, "exists", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))
}

func TestRunCommand_MissingModule(t *testing.T) {
	_, _, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "missing.wasm"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "libfs "), stdout)
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "plain", err: errors.New("boom"), want: ExitGeneralError},
		{name: "usage", err: fmt.Errorf("wrap: %w", ErrUsage), want: ExitUsageError},
		{name: "invalid config", err: fmt.Errorf("wrap: %w", config.ErrInvalidConfig), want: ExitConfigError},
		{name: "guest exit", err: &ExitError{Code: 42}, want: 42},
		{name: "wrapped exit", err: fmt.Errorf("run: %w", &ExitError{Code: 7, Err: ErrUsage}), want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}

func TestCheckPaths_MemoryRoot(t *testing.T) {
	mem := fs.NewMemoryProvider()
	require.NoError(t, mem.AddFile("/etc/hosts"))
	resolver := fs.NewResolver(nil, fs.Options{RootProvider: mem})

	var out, errOut bytes.Buffer
	require.NoError(t, checkPaths(resolver, []string{"/etc/hosts", "/etc//hosts/", "/etc/passwd"}, false, &out, &errOut))
	assert.Equal(t, "/etc/hosts\ttrue\n/etc//hosts/\ttrue\n/etc/passwd\tfalse\n", out.String())
	assert.Empty(t, errOut.String())
}
