package upload

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"permadeploy/internal/pd"
)

var mimePattern = regexp.MustCompile(`^[a-z]+/[a-z0-9][a-z0-9.+-]*(;.*)?$`)

// ParseListing reconstructs the per-file table the bundling tool prints
// (id, size, type, path). A row the terminal wrapped so that its id landed
// on the next line is re-joined with that line. Lines that are not rows are
// ignored.
func ParseListing(output string) []pd.UploadedFile {
	lines := strings.Split(output, "\n")
	var files []pd.UploadedFile
	seen := map[string]bool{}

	for i := 0; i < len(lines); i++ {
		line := cleanTableLine(lines[i])
		if line == "" {
			continue
		}

		var prefix, row string
		switch {
		case startsWithID(line):
			row = line
		case len(idTokens(line)) == 0 && i+1 < len(lines) && startsWithID(cleanTableLine(lines[i+1])):
			prefix = line
			row = cleanTableLine(lines[i+1])
			i++
		default:
			continue
		}

		f, ok := parseRow(prefix, row)
		if !ok || seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		files = append(files, f)
	}
	return files
}

// parseRow splits "<id> <size> <type> <path>". Size and type are optional;
// when the row itself has no path, the wrapped prefix is used.
func parseRow(prefix, row string) (pd.UploadedFile, bool) {
	fields := strings.Fields(row)
	if len(fields) == 0 || !IsContentID(fields[0]) {
		return pd.UploadedFile{}, false
	}
	f := pd.UploadedFile{ContentID: fields[0]}
	rest := fields[1:]

	if size, n := parseSize(rest); n > 0 {
		f.Size = int64(size)
		rest = rest[n:]
	}
	if len(rest) > 0 && mimePattern.MatchString(rest[0]) && (len(rest) > 1 || prefix != "") {
		f.ContentType = rest[0]
		rest = rest[1:]
	}

	f.Path = strings.Join(rest, " ")
	if f.Path == "" {
		f.Path = strings.TrimSpace(prefix)
	}
	if f.Path == "" || IsContentID(f.Path) {
		return pd.UploadedFile{}, false
	}
	return f, true
}

// parseSize consumes "1.2 kB" or "1.2kB" or "1234" from the front of fields.
func parseSize(fields []string) (uint64, int) {
	if len(fields) >= 2 && !strings.ContainsAny(fields[1], "/.") {
		if b, err := humanize.ParseBytes(fields[0] + " " + fields[1]); err == nil {
			return b, 2
		}
	}
	if len(fields) >= 1 {
		if b, err := humanize.ParseBytes(fields[0]); err == nil {
			return b, 1
		}
	}
	return 0, 0
}

func startsWithID(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && IsContentID(fields[0])
}

// cleanTableLine strips box-drawing borders and column separators.
func cleanTableLine(line string) string {
	line = strings.Map(func(r rune) rune {
		switch r {
		case '│', '┃', '|', '║':
			return ' '
		}
		return r
	}, line)
	return strings.TrimSpace(line)
}
