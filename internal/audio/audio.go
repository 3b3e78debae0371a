// Package audio prepares Telegram media files for speech-to-text.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrFileTooLarge is returned for files above the download limit.
var ErrFileTooLarge = errors.New("file is too large")

// File describes a media attachment independent of its Telegram type.
type File struct {
	FileID       string
	FileUniqueID string
	FileName     string
	MimeType     string
	FileSize     int64
	Duration     int
}

// supportedExtensions are accepted by Whisper without transcoding.
var supportedExtensions = map[string]struct{}{
	".flac": {}, ".m4a": {}, ".mp3": {}, ".mp4": {}, ".mpeg": {},
	".mpga": {}, ".oga": {}, ".ogg": {}, ".wav": {}, ".webm": {},
}

var mimeTypePattern = regexp.MustCompile(`^(\w+)/(\w+)`)

// ExtractFileName builds a file name from the unique id so user supplied
// names never reach the file system. The extension comes from the original
// file name, else from the MIME subtype.
func ExtractFileName(f File) string {
	if f.FileName != "" {
		return f.FileUniqueID + strings.ToLower(filepath.Ext(f.FileName))
	}
	if m := mimeTypePattern.FindStringSubmatch(f.MimeType); m != nil {
		return f.FileUniqueID + "." + strings.ToLower(m[2])
	}
	return f.FileUniqueID
}

// NeedsTranscode reports whether the file must be converted before transcription.
func NeedsTranscode(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return !ok
}

// Transcoder converts audio files with ffmpeg.
type Transcoder struct {
	ffmpegPath string
	log        *slog.Logger
}

// NewTranscoder returns a Transcoder running the given ffmpeg binary.
func NewTranscoder(ffmpegPath string, log *slog.Logger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{ffmpegPath: ffmpegPath, log: log.With("component", "transcoder")}
}

// ToMP3 writes an mp3 next to the input file and returns its path.
func (t *Transcoder) ToMP3(ctx context.Context, in string) (string, error) {
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".mp3"
	if out == in {
		return in, nil
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, transcodeArgs(in, out)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.log.DebugContext(ctx, "Transcoding file", "input", filepath.Base(in))
	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("ffmpeg transcoding failed: %w: %s", err, lastLine(stderr.String()))
	}

	t.log.DebugContext(ctx, "Transcoding finished", "output", filepath.Base(out))
	return out, nil
}

func transcodeArgs(in, out string) []string {
	return []string{"-nostdin", "-y", "-i", in, "-vn", "-c:a", "libmp3lame", "-b:a", "96k", out}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
