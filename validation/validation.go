package validation

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/yt-themes/errors"
	"github.com/nijaru/yt-themes/themes"
)

const (
	DefaultMaxThemes      = 50
	DefaultMaxFieldLength = 4096
)

type Validator struct {
	maxThemes      int
	maxFieldLength int
}

func NewValidator(maxThemes, maxFieldLength int) *Validator {
	if maxThemes <= 0 {
		maxThemes = DefaultMaxThemes
	}
	if maxFieldLength <= 0 {
		maxFieldLength = DefaultMaxFieldLength
	}
	return &Validator{maxThemes: maxThemes, maxFieldLength: maxFieldLength}
}

// ValidateThemesRequest checks field sizes and the save path. Empty themes or
// subtitles are left to the theme service, which owns that message.
func (v *Validator) ValidateThemesRequest(req themes.Request) error {
	const op = "Validator.ValidateThemesRequest"

	for name, value := range map[string]string{
		"themes":         req.Themes,
		"subtitles path": req.SubtitlesPath,
		"save path":      req.SavePath,
	} {
		if len(value) > v.maxFieldLength {
			return errors.InvalidInput(op, nil, fmt.Sprintf("The %s field is too long", name))
		}
	}

	if n := len(themes.ParseThemes(req.Themes)); n > v.maxThemes {
		return errors.InvalidInput(op, nil, fmt.Sprintf("At most %d themes are allowed, got %d", v.maxThemes, n))
	}

	if req.SavePath != "" && isDirectory(req.SavePath) {
		return errors.InvalidInput(op, nil, "Save path must name a file")
	}

	return nil
}

func isDirectory(path string) bool {
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

type RequestValidationOpts struct {
	MaxContentLength int64
	AllowedMethods   []string
	RequireJSON      bool
}

func (v *Validator) ValidateRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "Validator.ValidateRequest"

	if len(opts.AllowedMethods) > 0 {
		methodAllowed := false
		for _, method := range opts.AllowedMethods {
			if r.Method == method {
				methodAllowed = true
				break
			}
		}
		if !methodAllowed {
			return errors.E(op, nil, fmt.Sprintf("Method %s not allowed", r.Method), http.StatusMethodNotAllowed)
		}
	}

	if opts.RequireJSON {
		if contentType := r.Header.Get("Content-Type"); !strings.Contains(contentType, "application/json") {
			return errors.E(op, nil, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		}
	}

	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.E(op, nil, "Request body too large", http.StatusRequestEntityTooLarge)
	}

	return nil
}
