package lyrics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SongID derives a stable identifier for high-score bookkeeping. Artist and
// title are preferred; fallback (usually the lyric file path) is used when
// either is missing.
func SongID(meta Metadata, fallback string) string {
	key := strings.TrimSpace(fallback)
	artist := strings.ToLower(strings.TrimSpace(meta.Artist))
	title := strings.ToLower(strings.TrimSpace(meta.Title))
	if artist != "" && title != "" {
		key = artist + " - " + title
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// DisplayName returns "Artist - Title", or fallback when metadata is incomplete.
func DisplayName(meta Metadata, fallback string) string {
	switch {
	case meta.Artist != "" && meta.Title != "":
		return meta.Artist + " - " + meta.Title
	case meta.Title != "":
		return meta.Title
	default:
		return fallback
	}
}
