package shell

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vshell/internal/codec"
	"vshell/internal/vfs"
)

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

// newTestShell returns a shell in /home over:
//
//	/home/a.txt        "hi"
//	/home/docs/b.txt   "bee"
//	/etc/motd          "welcome"
func newTestShell(t *testing.T) *Shell {
	t.Helper()
	ns := vfs.New()
	err := vfs.Seed(ns, vfs.Layout{
		Directories: []string{"/home/docs", "/home", "/etc"},
		Files: []vfs.SeedFile{
			{Path: "/home/a.txt", Content: codec.Encode("hi")},
			{Path: "/home/docs/b.txt", Content: codec.Encode("bee")},
			{Path: "/etc/motd", Content: codec.Encode("welcome")},
		},
		Cwd: "/home",
	}, fixedNow)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Clock = func() time.Time { return fixedNow }
	return New(ns, opts)
}

// authenticate runs a sudo round trip so rm is allowed.
func authenticate(t *testing.T, sh *Shell) {
	t.Helper()
	require.Equal(t, PasswordPrompt, sh.Execute("sudo echo ok"))
	require.Equal(t, "ok", sh.Execute("vshell"))
}

func TestExecuteTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty input", "   ", ""},
		{"pwd", "pwd", "/home"},
		{"ls cwd", "ls", "a.txt    docs/"},
		{"ls root", "ls /", "etc/    home/"},
		{"ls relative", "ls docs", "b.txt"},
		{"ls missing", "ls nope", "ls: cannot access 'nope': No such file or directory"},
		{"ls file", "ls a.txt", "ls: a.txt: Not a directory"},
		{"cat", "cat a.txt", "hi"},
		{"cat absolute", "cat /etc/motd", "welcome"},
		{"cat missing", "cat nope", "cat: nope: No such file"},
		{"cat directory", "cat docs", "cat: docs: Is a directory"},
		{"cat usage", "cat", "Usage: cat <filename>"},
		{"echo", "echo hello world", "hello world"},
		{"echo quoted", `echo "hello   world"`, "hello   world"},
		{"echo unterminated quote", `echo "abc`, `"abc`},
		{"whoami", "whoami", "guest"},
		{"date", "date", "Tue Mar 05 2024 14:07:09 GMT+0000 (UTC)"},
		{"clear", "clear", OutputClear},
		{"unknown", "frobnicate", "command not found: frobnicate. Type 'help' for info."},
		{"cd missing", "cd /nope", "cd: /nope: No such file or directory"},
		{"cd file", "cd a.txt", "cd: a.txt: Not a directory"},
		{"mkdir exists", "mkdir docs", "mkdir: cannot create directory 'docs': File exists"},
		{"mkdir missing parent", "mkdir x/y", "mkdir: cannot create directory 'x/y': No such file or directory"},
		{"mkdir under file", "mkdir a.txt/y", "mkdir: cannot create directory 'a.txt/y': No such file or directory"},
		{"touch missing parent", "touch x/y", "touch: cannot touch 'x/y': No such file or directory"},
		{"rm without sudo", "rm a.txt", "rm: Permission denied. Use 'sudo rm <filename>' to authenticate first."},
		{"cp usage", "cp a.txt", "Usage: cp <source> <destination>"},
		{"mv usage", "mv", "Usage: mv <source> <destination>"},
		{"cp missing source", "cp nope x", "cp: cannot copy 'nope' to 'x': No such file or directory"},
		{"mv existing destination", "mv a.txt docs/b.txt", "mv: cannot move 'a.txt' to 'docs/b.txt': File exists"},
		{"cp root", "cp / /tmp", "cp: cannot copy '/' to '/tmp': Root directory is protected"},
		{"cp parent not a directory", "cp docs a.txt/x", "cp: cannot copy 'docs' to 'a.txt/x': Invalid destination: parent is not a directory"},
		{"cp into itself", "cp docs docs", "cp: cannot copy 'docs' to 'docs': Invalid destination: cannot copy a directory into itself"},
		{"mv into itself", "mv /home /home/docs/inner", "mv: cannot move '/home' to '/home/docs/inner': Invalid destination: cannot move a directory into itself"},
		{"downld", "downld a.txt", "DOWNLOAD:a.txt:aGk="},
		{"downld directory", "downld docs", "downld: docs: Is a directory"},
		{"downld missing", "downld nope", "downld: nope: No such file"},
		{"newtab host", "newtab example.com", "NEWTAB:https://example.com"},
		{"newtab http", "newtab http://example.com/x", "NEWTAB:http://example.com/x"},
		{"newtab scheme", "newtab ftp://example.com", "newtab: only http/https URLs are allowed"},
		{"theme", "theme sunset", "THEME:sunset"},
		{"theme unknown", "theme neon", "theme: unknown theme 'neon'. Available themes: matrix, sunset, dracula, light"},
		{"find usage", "find", "Usage: find [directory] <pattern>"},
		{"find missing dir", "find /nope *.txt", "find: '/nope': No such file or directory"},
		{"find", "find / *.txt", "/home/a.txt\n/home/docs/b.txt"},
		{"find relative dir", "find docs *.txt", "/home/docs/b.txt"},
		{"find directory", "find / docs", "/home/docs\n/home/docs/b.txt"},
		{"find no match", "find *.md", ""},
		{"hidden pwd", "__pwd__", "/home"},
		{"hidden ls", "__ls__", "a.txt    docs/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sh := newTestShell(t)
			assert.Equal(t, tt.want, sh.Execute(tt.input))
		})
	}
}

func TestCdAndPwd(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	assert.Empty(t, sh.Execute("cd docs"))
	assert.Equal(t, "/home/docs", sh.Execute("pwd"))

	assert.Empty(t, sh.Execute("cd ../../etc"))
	assert.Equal(t, "/etc", sh.Execute("pwd"))

	// Parent of root stays at root
	assert.Empty(t, sh.Execute("cd ../../.."))
	assert.Equal(t, "/", sh.Execute("pwd"))

	// Bare cd goes home
	assert.Empty(t, sh.Execute("cd"))
	assert.Equal(t, "/home", sh.Execute("pwd"))

	// A failed cd leaves the cursor alone
	sh.Execute("cd /nope")
	assert.Equal(t, "/home", sh.Execute("pwd"))
}

func TestMkdirTouchCat(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	assert.Empty(t, sh.Execute("mkdir new"))
	assert.Empty(t, sh.Execute("touch new/empty.txt"))
	assert.Equal(t, "empty.txt", sh.Execute("ls new"))
	assert.Empty(t, sh.Execute("cat new/empty.txt"))

	// touch leaves existing files alone
	assert.Empty(t, sh.Execute("touch a.txt"))
	assert.Equal(t, "hi", sh.Execute("cat a.txt"))

	assert.Empty(t, sh.Execute("touch docs"))
	assert.True(t, sh.Namespace().IsDirectory("/home/docs"))
}

func TestCatInvalidContent(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)
	// 0xff is not valid UTF-8 once decoded
	sh.Namespace().CreateFile("/home/bin.dat", codec.Obfuscate([]byte{0xff, 0xfe}), fixedNow)

	assert.Equal(t, "??", sh.Execute("cat bin.dat"))
}

func TestCopyAndMove(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	assert.Empty(t, sh.Execute("cp a.txt copy.txt"))
	assert.Equal(t, "hi", sh.Execute("cat copy.txt"))
	assert.Equal(t, "hi", sh.Execute("cat a.txt"))

	// Into an existing directory
	assert.Empty(t, sh.Execute("mv copy.txt /etc"))
	assert.Equal(t, "hi", sh.Execute("cat /etc/copy.txt"))
	assert.False(t, sh.Namespace().Exists("/home/copy.txt"))

	// Whole subtree
	assert.Empty(t, sh.Execute("cp docs /etc/docs2"))
	assert.Equal(t, "bee", sh.Execute("cat /etc/docs2/b.txt"))
	assert.Equal(t, "bee", sh.Execute("cat docs/b.txt"))
}

func TestMoveRemapsWorkingDirectory(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	require.Empty(t, sh.Execute("cd docs"))
	require.Empty(t, sh.Execute("mv /home/docs /etc/moved"))

	assert.Equal(t, "/etc/moved", sh.Execute("pwd"))
	assert.Equal(t, "b.txt", sh.Execute("ls"))
}

func TestSudoFlow(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	assert.Equal(t, "Usage: sudo <command> [args...]", sh.Execute("sudo"))
	assert.False(t, sh.AwaitingPassword())

	assert.Equal(t, PasswordPrompt, sh.Execute("sudo rm a.txt"))
	assert.True(t, sh.AwaitingPassword())
	assert.Equal(t, []string{"rm", "a.txt"}, sh.Sudo().Pending)

	// Wrong password keeps the prompt open
	assert.Equal(t, "[sudo] Sorry, try again.", sh.Execute("hunter2"))
	assert.True(t, sh.AwaitingPassword())
	assert.True(t, sh.Namespace().Exists("/home/a.txt"))

	// The accepted password runs the pending command
	assert.Empty(t, sh.Execute("vshell"))
	assert.False(t, sh.AwaitingPassword())
	assert.True(t, sh.Sudo().Authenticated)
	assert.Empty(t, sh.Sudo().Pending)
	assert.False(t, sh.Namespace().Exists("/home/a.txt"))

	// Authentication lasts for the session
	assert.Empty(t, sh.Execute("rm docs/b.txt"))
	assert.False(t, sh.Namespace().Exists("/home/docs/b.txt"))
}

func TestSudoWithoutPendingCommand(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)
	sh.sudo.WaitingForPassword = true

	assert.Equal(t, "[sudo] authenticated successfully", sh.Execute(" vshell "))
	assert.True(t, sh.Sudo().Authenticated)
}

func TestRmErrors(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)
	authenticate(t, sh)

	tests := []struct {
		input string
		want  string
	}{
		{"rm", "Usage: rm <filename>"},
		{"rm docs", "rm: cannot remove 'docs': Directory not empty"},
		{"rm nope", "rm: cannot remove 'nope': No such file or directory"},
		{"rm /", "rm: cannot remove '/': Root directory is protected"},
		{"rm ../..", "rm: cannot remove '../..': Root directory is protected"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sh.Execute(tt.input), tt.input)
	}

	assert.Empty(t, sh.Execute("rm docs/b.txt"))
	assert.Empty(t, sh.Execute("rm docs"))
	assert.Equal(t, "a.txt", sh.Execute("ls"))
}

func TestHistory(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	// history records itself before it runs
	assert.Equal(t, "1  history", sh.Execute("history"))

	sh = newTestShell(t)
	sh.Execute("echo a")
	sh.Execute("__pwd__")
	sh.Execute("__ls__")
	sh.Execute("  pwd  ")
	sh.Execute("sudo echo b")
	sh.Execute("vshell")

	assert.Equal(t, "1  echo a\n2  pwd\n3  sudo echo b\n4  echo b\n5  history", sh.Execute("history"))
	assert.Len(t, sh.Terminal().History, 5)
}

func TestSudoRecordsAuthenticatedCommand(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)

	assert.Equal(t, PasswordPrompt, sh.Execute("sudo pwd"))
	assert.Equal(t, "[sudo] Sorry, try again.", sh.Execute("nope"))
	assert.Equal(t, "/home", sh.Execute("vshell"))
	assert.Equal(t, []string{"sudo pwd", "pwd"}, sh.Terminal().History)
}

func TestThemeState(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)
	assert.Equal(t, "matrix", sh.Terminal().Theme)

	sh.Execute("theme dracula")
	assert.Equal(t, "dracula", sh.Terminal().Theme)

	sh.Execute("theme neon")
	assert.Equal(t, "dracula", sh.Terminal().Theme)
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	sh := New(vfs.New(), Options{Themes: []string{"mono"}})

	assert.Equal(t, "guest", sh.Execute("whoami"))
	assert.Equal(t, "mono", sh.Terminal().Theme)
	assert.Equal(t, "cd: /home: No such file or directory", sh.Execute("cd"))
}

func TestHelpListsCommands(t *testing.T) {
	t.Parallel()
	sh := newTestShell(t)
	out := sh.Execute("help")

	for name := range commands {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "sudo")
}

// TestSessionScenario drives a full editing session the way a terminal
// front end would.
func TestSessionScenario(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)
	sh := newTestShell(t)

	g.Expect(sh.Execute("mkdir projects")).To(BeEmpty())
	g.Expect(sh.Execute("cd projects")).To(BeEmpty())
	g.Expect(sh.Execute("touch notes.txt")).To(BeEmpty())
	g.Expect(sh.Execute("cp notes.txt ../notes.bak")).To(BeEmpty())
	g.Expect(sh.Execute("ls ..")).To(Equal("a.txt    docs/    notes.bak    projects/"))

	g.Expect(sh.Execute("cd ..")).To(BeEmpty())
	g.Expect(sh.Execute("mv projects docs")).To(BeEmpty())
	g.Expect(sh.Execute("find docs notes*")).To(Equal("/home/docs/projects/notes.txt"))

	g.Expect(sh.Execute("sudo rm notes.bak")).To(Equal(PasswordPrompt))
	g.Expect(sh.Execute("vshell")).To(BeEmpty())
	g.Expect(sh.Execute("ls")).To(Equal("a.txt    docs/"))
	g.Expect(sh.Terminal().History).To(HaveLen(11))
}
