package shell

import (
	"errors"
	"fmt"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	log "github.com/sirupsen/logrus"

	"vshell/internal/codec"
	"vshell/internal/common"
)

func cmdPwd(sh *Shell, args []string) string {
	return sh.ns.CurrentPath()
}

func cmdCd(sh *Shell, args []string) string {
	target, display := sh.opts.Home, sh.opts.Home
	if len(args) > 0 {
		target, display = sh.ns.Resolve(args[0]), args[0]
	}

	err := sh.ns.SetCurrentPath(target)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrNotDir):
		return fmt.Sprintf("cd: %s: Not a directory", display)
	default:
		return fmt.Sprintf("cd: %s: No such file or directory", display)
	}
}

func cmdLs(sh *Shell, args []string) string {
	dir, display := sh.ns.CurrentPath(), "."
	if len(args) > 0 {
		dir, display = sh.ns.Resolve(args[0]), args[0]
	}

	if !sh.ns.Exists(dir) {
		return fmt.Sprintf("ls: cannot access '%s': No such file or directory", display)
	}
	if !sh.ns.IsDirectory(dir) {
		return fmt.Sprintf("ls: %s: Not a directory", display)
	}
	return strings.Join(sh.ns.ListChildren(dir), "    ")
}

func cmdCat(sh *Shell, args []string) string {
	if len(args) == 0 {
		return "Usage: cat <filename>"
	}
	target := sh.ns.Resolve(args[0])

	if !sh.ns.Exists(target) {
		return fmt.Sprintf("cat: %s: No such file", args[0])
	}
	if sh.ns.IsDirectory(target) {
		return fmt.Sprintf("cat: %s: Is a directory", args[0])
	}
	content, ok := sh.ns.ReadContent(target)
	if !ok {
		return "Error reading file"
	}
	return codec.Decode(content)
}

func cmdMkdir(sh *Shell, args []string) string {
	if len(args) == 0 {
		return "Usage: mkdir <directory>"
	}
	target := sh.ns.Resolve(args[0])

	if err := sh.ns.CanCreate(target); err != nil {
		reason := "No such file or directory"
		if errors.Is(err, common.ErrExists) {
			reason = "File exists"
		}
		return fmt.Sprintf("mkdir: cannot create directory '%s': %s", args[0], reason)
	}
	sh.ns.CreateDirectory(target, sh.opts.Clock())
	return ""
}

// cmdTouch creates an empty file. An existing entry is left as it is.
func cmdTouch(sh *Shell, args []string) string {
	if len(args) == 0 {
		return "Usage: touch <filename>"
	}
	target := sh.ns.Resolve(args[0])

	if sh.ns.Exists(target) {
		return ""
	}
	if err := sh.ns.CanCreate(target); err != nil {
		return fmt.Sprintf("touch: cannot touch '%s': No such file or directory", args[0])
	}
	sh.ns.CreateFile(target, nil, sh.opts.Clock())
	return ""
}

// cmdRm removes a file or an empty directory. It requires a prior sudo
// authentication in this session.
func cmdRm(sh *Shell, args []string) string {
	if len(args) == 0 {
		return "Usage: rm <filename>"
	}
	if !sh.sudo.Authenticated {
		return "rm: Permission denied. Use 'sudo rm <filename>' to authenticate first."
	}
	target := sh.ns.Resolve(args[0])

	if err := sh.ns.Remove(target); err != nil {
		log.Debugf("[Shell] rm %s: %v", target, err)
		return fmt.Sprintf("rm: cannot remove '%s': %s", args[0], reason(err, "remove"))
	}
	return ""
}

func cmdCp(sh *Shell, args []string) string {
	return relocate(sh, "cp", "copy", args)
}

func cmdMv(sh *Shell, args []string) string {
	return relocate(sh, "mv", "move", args)
}

// relocate implements cp and mv. A destination naming an existing directory
// receives the source under its own base name.
func relocate(sh *Shell, name, verb string, args []string) string {
	if len(args) < 2 {
		return fmt.Sprintf("Usage: %s <source> <destination>", name)
	}
	src := sh.ns.Resolve(args[0])
	dst := sh.ns.Resolve(args[1])
	if sh.ns.IsDirectory(dst) && src != common.Root {
		dst = common.JoinPath(dst, common.BaseName(src))
	}

	var err error
	if verb == "copy" {
		err = sh.ns.Copy(src, dst)
	} else {
		err = sh.ns.Move(src, dst)
	}
	if err != nil {
		log.Debugf("[Shell] %s %s -> %s: %v", name, src, dst, err)
		return fmt.Sprintf("%s: cannot %s '%s' to '%s': %s", name, verb, args[0], args[1], reason(err, verb))
	}
	return ""
}

// cmdFind prints every path under a directory that matches a gitignore-style
// pattern, one absolute path per line.
func cmdFind(sh *Shell, args []string) string {
	var dir, display, pattern string
	switch len(args) {
	case 1:
		dir, display, pattern = sh.ns.CurrentPath(), ".", args[0]
	case 2:
		dir, display, pattern = sh.ns.Resolve(args[0]), args[0], args[1]
	default:
		return "Usage: find [directory] <pattern>"
	}

	if !sh.ns.Exists(dir) {
		return fmt.Sprintf("find: '%s': No such file or directory", display)
	}
	if !sh.ns.IsDirectory(dir) {
		return fmt.Sprintf("find: '%s': Not a directory", display)
	}

	matcher := ignore.CompileIgnoreLines(pattern)
	prefix := common.ChildPrefix(dir)
	var matches []string
	for _, p := range sh.ns.Paths(dir) {
		if p == dir {
			continue
		}
		rel := strings.TrimPrefix(p, prefix)
		if sh.ns.IsDirectory(p) {
			rel += "/"
		}
		if matcher.MatchesPath(rel) {
			matches = append(matches, p)
		}
	}
	return strings.Join(matches, "\n")
}

// cmdDownload hands a file to the front end as base64 of its decoded text.
func cmdDownload(sh *Shell, args []string) string {
	if len(args) == 0 {
		return "Usage: downld <filename>"
	}
	target := sh.ns.Resolve(args[0])

	if !sh.ns.Exists(target) {
		return fmt.Sprintf("downld: %s: No such file", args[0])
	}
	if sh.ns.IsDirectory(target) {
		return fmt.Sprintf("downld: %s: Is a directory", args[0])
	}
	content, ok := sh.ns.ReadContent(target)
	if !ok {
		return "Error reading file"
	}
	text := codec.Decode(content)
	return PrefixDownload + common.BaseName(target) + ":" + codec.Base64([]byte(text))
}

// reason renders a namespace error as the tail of a command message.
func reason(err error, verb string) string {
	switch {
	case errors.Is(err, common.ErrProtectedRoot):
		return "Root directory is protected"
	case errors.Is(err, common.ErrNotFound):
		return "No such file or directory"
	case errors.Is(err, common.ErrExists):
		return "File exists"
	case errors.Is(err, common.ErrNotEmpty):
		return "Directory not empty"
	case errors.Is(err, common.ErrDestParent):
		return "Invalid destination: parent is not a directory"
	case errors.Is(err, common.ErrDestInsideSource):
		return fmt.Sprintf("Invalid destination: cannot %s a directory into itself", verb)
	default:
		return err.Error()
	}
}
