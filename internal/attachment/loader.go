// Package attachment resolves a MailRequest attachment entry — a path on
// disk or an inline buffer — into bytes ready for the MIME composer
// (§4.4). Filesystem access is the one real I/O boundary in this package;
// it is grounded on the teacher's local attachment storage
// (internal/service/attachment.go), generalized from "write" to "read and
// validate".
package attachment

import (
	"os"
	"path/filepath"

	"github.com/sendbridge/mailer/internal/mailerr"
)

// Input describes one attachment entry as supplied by a caller. Exactly
// one of Path or Content should be set; Path takes precedence if both are
// present. Neither set means "skip this entry" (§4.4).
type Input struct {
	Path        string
	Content     []byte // nil means "not supplied"; an explicit empty slice is a valid zero-byte attachment
	Filename    string
	ContentType string
	Encoding    string
}

// Loaded is the resolved, in-memory form of an attachment, ready to be
// base64-encoded into a MIME part.
type Loaded struct {
	Filename    string
	ContentType string
	Content     []byte
	Encoding    string
}

const defaultFilename = "attachment"

// Load resolves in per §4.4. cwd is the directory relative paths are
// joined against. A nil, nil return means the entry was silently skipped
// because neither Path nor Content was supplied.
func Load(in Input, cwd string) (*Loaded, error) {
	switch {
	case in.Path != "":
		return loadFromPath(in, cwd)
	case in.Content != nil:
		filename := in.Filename
		if filename == "" {
			filename = defaultFilename
		}
		return &Loaded{
			Filename:    filename,
			ContentType: in.ContentType,
			Content:     in.Content,
			Encoding:    encodingOrDefault(in.Encoding),
		}, nil
	default:
		return nil, nil
	}
}

func loadFromPath(in Input, cwd string) (*Loaded, error) {
	resolved := filepath.Clean(in.Path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cwd, resolved)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, mailerr.Attachment("attachment path does not exist", err)
	}
	if info.IsDir() {
		return nil, mailerr.Attachment("attachment path is a directory", nil)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, mailerr.Attachment("attachment is not readable", err)
	}

	filename := in.Filename
	switch {
	case filename == "":
		filename = filepath.Base(resolved)
	case filepath.Ext(filename) == "":
		filename += filepath.Ext(resolved)
	}

	return &Loaded{
		Filename:    filename,
		ContentType: in.ContentType,
		Content:     content,
		Encoding:    encodingOrDefault(in.Encoding),
	}, nil
}

func encodingOrDefault(encoding string) string {
	if encoding == "" {
		return "base64"
	}
	return encoding
}
