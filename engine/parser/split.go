package parser

import (
	"strings"

	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/sourcemap"
)

// splitResult is the raw frontmatter/body split of a workflow document,
// before either half has been parsed.
type splitResult struct {
	Frontmatter       string
	FrontmatterOffset int
	Body              string
	BodyOffset        int
}

// split divides source into frontmatter and body at the leading/closing
// "---" delimiters, accepting both LF and CRLF line endings. It fails fast
// with a precise location for each of the three structural defects the
// spec names: missing leading delimiter, missing closing delimiter, empty
// body.
func split(source string, sm *sourcemap.Map) (splitResult, error) {
	lines := splitLinesWithOffsets(source)
	if len(lines) == 0 || !isDelimiterLine(lines[0].text) {
		loc := sm.LocationFor(0, 0)
		return splitResult{}, ferrors.New(ferrors.KindMissingFrontmatter,
			"workflow document must begin with a '---' frontmatter delimiter").WithLocation(loc)
	}

	closingIdx := -1
	for i := 1; i < len(lines); i++ {
		if isDelimiterLine(lines[i].text) {
			closingIdx = i
			break
		}
	}
	if closingIdx == -1 {
		loc := sm.LocationFor(lines[0].offset, len(source))
		return splitResult{}, ferrors.New(ferrors.KindMissingFrontmatter,
			"missing closing '---' delimiter for frontmatter").WithLocation(loc)
	}

	fmStart := lines[1].offset
	var fmEnd int
	if closingIdx < len(lines) {
		fmEnd = lines[closingIdx].offset
	} else {
		fmEnd = len(source)
	}
	if fmEnd < fmStart {
		fmEnd = fmStart
	}
	frontmatter := source[fmStart:fmEnd]

	bodyStart := len(source)
	if closingIdx+1 < len(lines) {
		bodyStart = lines[closingIdx+1].offset
	}
	body := source[bodyStart:]
	if strings.TrimSpace(body) == "" {
		loc := sm.LocationFor(bodyStart, len(source))
		return splitResult{}, ferrors.New(ferrors.KindMissingBody,
			"workflow document has an empty body").WithLocation(loc)
	}

	return splitResult{
		Frontmatter:       frontmatter,
		FrontmatterOffset: fmStart,
		Body:              body,
		BodyOffset:        bodyStart,
	}, nil
}

type lineSpan struct {
	text   string
	offset int
}

// splitLinesWithOffsets splits source into lines (without their line
// terminators) alongside each line's starting byte offset.
func splitLinesWithOffsets(source string) []lineSpan {
	var out []lineSpan
	offset := 0
	for offset <= len(source) {
		nl := strings.IndexByte(source[offset:], '\n')
		if nl == -1 {
			out = append(out, lineSpan{text: source[offset:], offset: offset})
			break
		}
		end := offset + nl
		out = append(out, lineSpan{text: source[offset:end], offset: offset})
		offset = end + 1
	}
	return out
}

// isDelimiterLine reports whether a line (LF already stripped) is exactly
// "---", tolerating a trailing \r from CRLF line endings.
func isDelimiterLine(line string) bool {
	return strings.TrimSuffix(line, "\r") == "---"
}
