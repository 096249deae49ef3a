package lyrics

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	leadingTagRe = regexp.MustCompile(`^\[([^\[\]]*)\]`)
	timestampRe  = regexp.MustCompile(`^(\d{1,3}):(\d{2})\.(\d{2,3})$`)
	metaTagRe    = regexp.MustCompile(`^([A-Za-z#]+):(.*)$`)
	wordStampRe  = regexp.MustCompile(`<\d{1,3}:\d{2}(?:\.\d{2,3})?>`)
	lengthRe     = regexp.MustCompile(`^(\d{1,3}):(\d{2})(?:\.(\d{2,3}))?$`)
)

// ParseBytes decodes raw bytes with the named encoding and parses them.
func ParseBytes(raw []byte, encoding string) (*Timeline, error) {
	text, err := Decode(raw, encoding)
	if err != nil {
		return nil, err
	}
	return Parse(text)
}

// Parse reads bracketed timed text ([mm:ss.xx] or [mm:ss.xxx]) into a Timeline.
// Each timestamp tag preceding a payload yields its own line; any other
// bracketed text after the timestamps belongs to the payload. Metadata tags
// (ar, ti, al, by, length, offset) are collected from untimed lines only and
// malformed tags are skipped.
func Parse(raw string) (*Timeline, error) {
	if !utf8.ValidString(raw) {
		return nil, &ParseError{Op: "read", Err: ErrInvalidEncoding}
	}

	var lines []Line
	meta := Metadata{}
	for _, rawLine := range strings.Split(raw, "\n") {
		rest := strings.TrimSpace(strings.TrimSuffix(rawLine, "\r"))
		var stamps []int64
		for {
			loc := leadingTagRe.FindStringSubmatchIndex(rest)
			if loc == nil {
				break
			}
			body := rest[loc[2]:loc[3]]
			ms, ok := parseStamp(body)
			if !ok && len(stamps) > 0 {
				// Payload starts at the first non-timestamp tag.
				break
			}
			rest = strings.TrimLeft(rest[loc[1]:], " \t")
			if ok {
				stamps = append(stamps, ms)
				continue
			}
			applyMeta(&meta, body)
		}
		if len(stamps) == 0 {
			continue
		}
		text := strings.TrimSpace(wordStampRe.ReplaceAllString(rest, ""))
		if text == "" {
			continue
		}
		for _, ms := range stamps {
			lines = append(lines, Line{StartMs: ms, Text: text})
		}
	}
	if meta.Tags == nil {
		meta.Tags = map[string]string{}
	}
	return NewTimeline(lines, meta), nil
}

func parseStamp(body string) (int64, bool) {
	m := timestampRe.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return 0, false
	}
	return clockMs(m[1], m[2], m[3])
}

func clockMs(minText, secText, fracText string) (int64, bool) {
	minutes, err := strconv.ParseInt(minText, 10, 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseInt(secText, 10, 64)
	if err != nil || seconds >= 60 {
		return 0, false
	}
	var frac int64
	if fracText != "" {
		frac, err = strconv.ParseInt(fracText, 10, 64)
		if err != nil {
			return 0, false
		}
		if len(fracText) == 2 {
			frac *= 10
		}
	}
	return minutes*60000 + seconds*1000 + frac, true
}

func applyMeta(meta *Metadata, body string) {
	m := metaTagRe.FindStringSubmatch(body)
	if m == nil {
		return
	}
	key := strings.ToLower(m[1])
	value := strings.TrimSpace(m[2])
	switch key {
	case "ar":
		meta.Artist = value
	case "ti":
		meta.Title = value
	case "al":
		meta.Album = value
	case "by":
		meta.By = value
	case "length":
		if ms, err := parseLength(value); err == nil {
			meta.DurationMs = ms
		}
	case "offset":
		if ms, err := strconv.ParseInt(strings.TrimPrefix(value, "+"), 10, 64); err == nil {
			meta.OffsetMs = ms
		}
	default:
		if meta.Tags == nil {
			meta.Tags = map[string]string{}
		}
		meta.Tags[key] = value
	}
}

func parseLength(value string) (int64, error) {
	m := lengthRe.FindStringSubmatch(value)
	if m == nil {
		return 0, errors.New("malformed length")
	}
	ms, ok := clockMs(m[1], m[2], m[3])
	if !ok {
		return 0, errors.New("malformed length")
	}
	return ms, nil
}

func sortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].StartMs < lines[j].StartMs
	})
}
