package classifier

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultScript = "theme_classifier.py"
	lockRetry     = 250 * time.Millisecond
)

// Runner executes an external scoring script and returns its JSON output.
type Runner interface {
	RunScript(ctx context.Context, scriptName string, args map[string]string, flags []string) ([]byte, error)
}

// Uploader copies a saved result file to remote storage and returns where it landed.
type Uploader interface {
	UploadFile(ctx context.Context, key, localPath string) (string, error)
}

type Options struct {
	Script    string
	Model     string
	BatchSize int
	// Uploader is optional. Upload failures are logged, not returned.
	Uploader     Uploader
	UploadPrefix string
	Logger       *logrus.Logger
}

// ScriptClassifier scores subtitle text against a fixed theme list by running
// the zero-shot scoring script. Results are cached as CSV at the save path.
type ScriptClassifier struct {
	themes []string
	runner Runner
	opts   Options
	logger *logrus.Entry
}

// scriptOutput is the JSON document printed by the scoring script.
type scriptOutput struct {
	Order   []string             `json:"order"`
	Columns map[string][]float64 `json:"columns"`
	Error   string               `json:"error"`
}

func New(themes []string, runner Runner, opts Options) (*ScriptClassifier, error) {
	if len(themes) == 0 {
		return nil, errors.New("at least one theme is required")
	}
	if runner == nil {
		return nil, errors.New("script runner is required")
	}
	if opts.Script == "" {
		opts.Script = DefaultScript
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ScriptClassifier{
		themes: append([]string(nil), themes...),
		runner: runner,
		opts:   opts,
		logger: logger.WithField("component", "classifier"),
	}, nil
}

// Themes returns per-row theme scores for the text at subtitlesPath. When
// savePath already holds a CSV it is returned as-is; otherwise the script runs
// and its output is written to savePath. An empty savePath disables caching.
func (c *ScriptClassifier) Themes(ctx context.Context, subtitlesPath, savePath string) (*Table, error) {
	logger := c.logger.WithFields(logrus.Fields{
		"subtitles_path": subtitlesPath,
		"save_path":      savePath,
	})

	if savePath == "" {
		return c.score(ctx, subtitlesPath)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return nil, errors.Wrap(err, "create save directory")
	}
	lock := flock.New(savePath + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, errors.Wrap(err, "lock save path")
	}
	if !locked {
		return nil, errors.Errorf("save path %s is busy", savePath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.WithError(err).Warn("Failed to release save path lock")
		}
	}()

	if _, err := os.Stat(savePath); err == nil {
		logger.Info("Loading saved theme scores")
		return LoadCSV(savePath)
	}

	table, err := c.score(ctx, subtitlesPath)
	if err != nil {
		return nil, err
	}

	if err := table.SaveCSV(savePath); err != nil {
		return nil, errors.Wrap(err, "save theme scores")
	}
	logger.WithField("rows", table.Rows()).Info("Saved theme scores")

	c.upload(ctx, savePath, logger)
	return table, nil
}

func (c *ScriptClassifier) score(ctx context.Context, subtitlesPath string) (*Table, error) {
	if _, err := os.Stat(subtitlesPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("subtitles path does not exist: %s", subtitlesPath)
		}
		return nil, errors.Wrap(err, "stat subtitles path")
	}

	args := map[string]string{
		"subtitles": subtitlesPath,
		"themes":    strings.Join(c.themes, ","),
		"model":     c.opts.Model,
	}
	if c.opts.BatchSize > 0 {
		args["batch-size"] = strconv.Itoa(c.opts.BatchSize)
	}

	start := time.Now()
	output, err := c.runner.RunScript(ctx, c.opts.Script, args, nil)
	if err != nil {
		return nil, errors.Wrap(err, "run theme classifier")
	}
	c.logger.WithField("duration", time.Since(start)).Debug("Theme classifier finished")

	return parseOutput(output, c.themes)
}

func (c *ScriptClassifier) upload(ctx context.Context, savePath string, logger *logrus.Entry) {
	if c.opts.Uploader == nil {
		return
	}
	key := path.Join(c.opts.UploadPrefix, time.Now().UTC().Format("20060102T150405Z")+"-"+filepath.Base(savePath))
	url, err := c.opts.Uploader.UploadFile(ctx, key, savePath)
	if err != nil {
		logger.WithError(err).WithField("key", key).Warn("Failed to upload theme scores")
		return
	}
	logger.WithField("url", url).Info("Uploaded theme scores")
}

// parseOutput converts script JSON into a Table. Column order follows the
// script's "order" field, falling back to the requested themes.
func parseOutput(data []byte, themes []string) (*Table, error) {
	var out scriptOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "parse classifier output")
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	if len(out.Columns) == 0 {
		return nil, errors.New("classifier returned no scores")
	}

	order := out.Order
	if len(order) == 0 {
		order = themes
	}

	table := NewTable()
	seen := make(map[string]bool, len(out.Columns))
	for _, name := range order {
		values, ok := out.Columns[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		if err := table.Add(name, values); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(out.Columns) {
		if seen[name] {
			continue
		}
		if err := table.Add(name, out.Columns[name]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
