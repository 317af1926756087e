// Package parser implements the `.rc` boot-record format used by
// /libraries/_load_.rc, /modules/_load_.rc, /services/_load_.rc and
// /programs/_load_.rc: one whitespace-free record per line, `#`
// begins a comment that runs to end of line.
package parser

type rcStatus int

const (
	statusRecord rcStatus = iota
	statusSave
	statusSkip
)

// RC decodes a `.rc` file's contents into its ordered list of
// records. Each record is a contiguous run of printable,
// non-whitespace bytes; blank lines and `#...` comments produce no
// record. Follows the original decode state machine
// (RecordCmd/SaveCmd/NotRecord): a comment resumes recording at the
// next newline and `\r` is ignored outright. A record directly before
// a `#`, or at the end of input without a trailing newline, is kept.
func RC(rc string) []string {
	var (
		records    []string
		status     = statusRecord
		startIndex = -1
		length     = 0
	)

	flush := func(i int) {
		if startIndex != -1 {
			records = append(records, rc[startIndex:startIndex+length])
			startIndex = -1
			length = 0
		}
	}

	for i := 0; i < len(rc); i++ {
		b := rc[i]
		switch {
		case b == '#':
			flush(i)
			status = statusSkip
		case b == ' ':
			if status == statusRecord {
				status = statusSave
			}
		case b == '\r':
			continue
		case b == '\n':
			switch status {
			case statusRecord:
				status = statusSave
			case statusSkip:
				status = statusRecord
			}
		default:
			if status == statusRecord && b > ' ' && b <= '~' {
				if startIndex == -1 {
					startIndex = i
				}
				length++
			}
		}

		if status == statusSave && startIndex != -1 {
			flush(i)
			status = statusRecord
		}
	}
	flush(len(rc))

	return records
}
